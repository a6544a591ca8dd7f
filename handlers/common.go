package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"crm-api/query"
	"crm-api/types"
)

// respondFilterError maps compiler errors on direct user-facing filter input
// to request-level validation failures; anything else is an internal error.
func respondFilterError(c *gin.Context, err error) {
	for _, sentinel := range []error{
		query.ErrInvalidFilter,
		query.ErrTooDeep,
		query.ErrUnknownField,
		query.ErrUnknownOperator,
		query.ErrUnresolvedPrincipal,
		query.ErrBadBetweenValue,
	} {
		if errors.Is(err, sentinel) {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
			return
		}
	}
	c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
}
