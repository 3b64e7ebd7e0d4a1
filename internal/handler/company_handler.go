package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/fairyhunter13/bus-ticket-booking/internal/model"
)

// CompanyRefunder deletes a company and refunds riders of its upcoming trips.
type CompanyRefunder interface {
	DeleteCompany(ctx context.Context, companyID uuid.UUID) (*model.RefundSummary, error)
}

// CompanyHandler handles HTTP requests for bus companies.
type CompanyHandler struct {
	refunds CompanyRefunder
}

// NewCompanyHandler creates a new CompanyHandler.
func NewCompanyHandler(refunds CompanyRefunder) *CompanyHandler {
	return &CompanyHandler{refunds: refunds}
}

// Delete handles DELETE /api/companies/:id. Admin only; the route enforces the role.
func (h *CompanyHandler) Delete(c *fiber.Ctx) error {
	companyID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "INVALID_REQUEST", "invalid request: id must be a UUID")
	}

	summary, err := h.refunds.DeleteCompany(c.Context(), companyID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(summary)
}
