package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/louisbranch/battleground/internal/platform/errors"
	"github.com/louisbranch/battleground/internal/platform/i18n/catalog"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/encoding/protojson"
)

func (h *Handler) writeError(c *gin.Context, err error) {
	locale := catalog.Default().Match(c.GetHeader("Accept-Language"))
	st := apperrors.Status(err, locale)
	httpStatus := grpcCodeHTTPStatus(st.Code())
	if httpStatus >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)

	body, marshalErr := protojson.Marshal(st.Proto())
	if marshalErr != nil {
		h.logger.Error("marshal error status", zap.Error(marshalErr))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Header("Content-Language", locale)
	c.Data(httpStatus, "application/json", body)
	c.Abort()
}

func (h *Handler) notFound(c *gin.Context) {
	h.writeError(c, apperrors.WithMetadata(apperrors.CodeNotFound, "route not found", map[string]string{"Resource": "route"}))
}

func invalidArgument(reason string) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidArgument, "invalid request: "+reason, map[string]string{"Reason": reason})
}

func grpcCodeHTTPStatus(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.FailedPrecondition, codes.ResourceExhausted:
		return http.StatusConflict
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
