package admission

import (
	"context"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/battleground/internal/platform/errors"
	"github.com/louisbranch/battleground/internal/platform/pagination"
	"github.com/louisbranch/battleground/internal/services/battleground/core/filter"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"github.com/louisbranch/battleground/internal/storage/cursor"
)

const (
	orderJoinOrder     = "join_order"
	orderJoinOrderDesc = "join_order desc"
)

var (
	participantPageSize = pagination.PageSizeConfig{Default: 50, Max: 200}
	participantOrderBy  = pagination.OrderByConfig{
		Default: orderJoinOrder,
		Allowed: []string{orderJoinOrder, orderJoinOrderDesc},
	}
)

// GetGameConfig returns the game configuration.
func (s *Service) GetGameConfig(ctx context.Context) (battleground.GameConfig, error) {
	return s.store.GetGameConfig(ctx)
}

// GetBattleground returns one battleground.
func (s *Service) GetBattleground(ctx context.Context, id uint64) (battleground.Battleground, error) {
	return s.store.GetBattleground(ctx, id)
}

// GetParticipant returns one participant.
func (s *Service) GetParticipant(ctx context.Context, battlegroundID uint64, asset battleground.PublicKey) (battleground.Participant, error) {
	return s.store.GetParticipant(ctx, battlegroundID, asset)
}

// ListParticipantsRequest selects a page of participants.
type ListParticipantsRequest struct {
	BattlegroundID uint64
	// Filter is an AIP-160 expression over alive, attack, defense,
	// health_points and owner.
	Filter    string
	OrderBy   string
	PageSize  int
	PageToken string
}

// ListParticipantsPage is one page of participants.
type ListParticipantsPage struct {
	Participants  []battleground.Participant
	NextPageToken string
}

// ListParticipants returns participants in join order, filtered and paged.
// Page tokens are bound to the battleground, filter and order they were
// issued for.
func (s *Service) ListParticipants(ctx context.Context, req ListParticipantsRequest) (ListParticipantsPage, error) {
	if _, err := s.store.GetBattleground(ctx, req.BattlegroundID); err != nil {
		return ListParticipantsPage{}, err
	}

	orderBy, err := pagination.NormalizeOrderBy(strings.ToLower(req.OrderBy), participantOrderBy)
	if err != nil {
		return ListParticipantsPage{}, apperrors.Wrap(apperrors.CodeFilterInvalid, err.Error(), err)
	}
	descending := orderBy == orderJoinOrderDesc

	condition, err := filter.ParseParticipantFilter(req.Filter)
	if err != nil {
		return ListParticipantsPage{}, apperrors.Wrap(apperrors.CodeFilterInvalid, "invalid participant filter", err)
	}

	scope := "battleground/" + strconv.FormatUint(req.BattlegroundID, 10)
	query := ParticipantQuery{
		BattlegroundID: req.BattlegroundID,
		Condition:      condition,
		Descending:     descending,
		Limit:          pagination.ClampPageSize(req.PageSize, participantPageSize),
	}
	if req.PageToken != "" {
		c, err := cursor.Decode(req.PageToken)
		if err == nil {
			err = cursor.Validate(c, scope, req.Filter, orderBy)
		}
		if err == nil && (c.Dir == cursor.DirectionBackward) != descending {
			err = apperrors.New(apperrors.CodePageTokenInvalid, "page token direction does not match order")
		}
		if err != nil {
			return ListParticipantsPage{}, apperrors.Wrap(apperrors.CodePageTokenInvalid, "invalid page token", err)
		}
		query.AfterSeq = uint32(c.Seq)
	}

	pageSize := query.Limit
	query.Limit = pageSize + 1
	participants, err := s.store.ListParticipants(ctx, query)
	if err != nil {
		return ListParticipantsPage{}, err
	}

	page := ListParticipantsPage{Participants: participants}
	if len(participants) > pageSize {
		page.Participants = participants[:pageSize]
		last := page.Participants[pageSize-1]
		token, err := cursor.Encode(cursor.NewNextPageCursor(scope, uint64(last.JoinOrder), descending, req.Filter, orderBy))
		if err != nil {
			return ListParticipantsPage{}, err
		}
		page.NextPageToken = token
	}
	return page, nil
}
