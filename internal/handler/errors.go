package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/tooltrack-backend/internal/apperr"
	"github.com/stemsi/tooltrack-backend/internal/model"
	"github.com/stemsi/tooltrack-backend/internal/repository"
	"github.com/stemsi/tooltrack-backend/internal/response"
	"github.com/stemsi/tooltrack-backend/internal/service"
)

// failFromError maps service and repository errors onto the response envelope.
func failFromError(c *gin.Context, err error) {
	var (
		verr *apperr.ValidationError
		aerr *apperr.AuthError
	)
	switch {
	case errors.As(err, &verr):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, verr.FieldMap())
	case errors.As(err, &aerr):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	case errors.Is(err, repository.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, repository.ErrDuplicateCode), errors.Is(err, repository.ErrDuplicateUsername):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	case errors.Is(err, repository.ErrReferenced):
		response.Fail(c, http.StatusConflict, response.ErrDependencyExists)
	case errors.Is(err, repository.ErrInsufficientStock):
		response.Fail(c, http.StatusConflict, response.ErrInsufficientStock)
	case errors.Is(err, repository.ErrReturnExceedsOutstanding):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrReturnExceedsOutstanding)
	case errors.Is(err, service.ErrSelfDelete):
		response.Fail(c, http.StatusForbidden, response.ErrActionForbidden)
	default:
		_ = c.Error(err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// parseID reads a positive integer path parameter.
func parseID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	return page, perPage
}

// issueFilter reads state, division_id, item_id, from and to (YYYY-MM-DD,
// inclusive) from the query string.
func issueFilter(c *gin.Context) (model.IssueFilter, map[string]string) {
	var f model.IssueFilter
	fields := map[string]string{}

	switch state := model.IssueState(c.Query("state")); state {
	case "", model.IssueStateIssued, model.IssueStatePartial, model.IssueStateReturned:
		f.State = state
	default:
		fields["state"] = "state must be one of ISSUED PARTIAL RETURNED"
	}

	for name, dst := range map[string]**int{"division_id": &f.DivisionID, "item_id": &f.ItemID} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			fields[name] = name + " must be a positive integer"
			continue
		}
		*dst = &v
	}

	if raw := c.Query("from"); raw != "" {
		t, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
		if err != nil {
			fields["from"] = "from must be YYYY-MM-DD"
		} else {
			f.From = &t
		}
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
		if err != nil {
			fields["to"] = "to must be YYYY-MM-DD"
		} else {
			end := t.AddDate(0, 0, 1)
			f.To = &end
		}
	}

	if len(fields) > 0 {
		return f, fields
	}
	return f, nil
}
