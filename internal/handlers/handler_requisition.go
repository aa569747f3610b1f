package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/oversight/internal/core/domain"
	portssvc "github.com/SscSPs/oversight/internal/core/ports/services"
	"github.com/SscSPs/oversight/internal/dto"
	"github.com/SscSPs/oversight/internal/middleware"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// requisitionHandler handles HTTP requests related to purchase requisitions.
type requisitionHandler struct {
	requisitionService portssvc.RequisitionSvcFacade
	exportService      portssvc.ExportSvc
}

func newRequisitionHandler(rs portssvc.RequisitionSvcFacade, es portssvc.ExportSvc) *requisitionHandler {
	return &requisitionHandler{
		requisitionService: rs,
		exportService:      es,
	}
}

// registerRequisitionRoutes registers all requisition routes. Role gates here are
// coarse; the service re-checks department and record-level permissions.
func registerRequisitionRoutes(rg *gin.RouterGroup, rs portssvc.RequisitionSvcFacade, es portssvc.ExportSvc) {
	h := newRequisitionHandler(rs, es)
	seesAll := middleware.RequireRoles(domain.RoleFinance, domain.RoleAdmin, domain.RoleSuperUser)

	reqs := rg.Group("/requisitions")
	{
		reqs.POST("", h.submitRequisition)
		reqs.GET("", seesAll, h.listRequisitions)
		reqs.GET("/mine", h.listOwnRequisitions)
		reqs.GET("/department/pending", middleware.RequireRoles(domain.RoleHOD, domain.RoleAdmin, domain.RoleSuperUser), h.listDepartmentPending)
		reqs.GET("/finance/pending", seesAll, h.listFinancePending)
		reqs.GET("/export.xlsx", seesAll, h.exportRequisitions)
		reqs.GET("/:id", h.getRequisition)
		reqs.POST("/:id/decision", h.decideRequisition)
		reqs.POST("/:id/split", h.splitRequisition)
		reqs.POST("/:id/split-items", h.splitRequisitionByItems)
	}
}

// identityOrAbort fetches the caller identity, writing 401 when it is missing.
func identityOrAbort(c *gin.Context) (domain.Identity, bool) {
	identity, ok := middleware.GetIdentityFromContext(c)
	if !ok {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("Identity not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return domain.Identity{}, false
	}
	return identity, true
}

// submitRequisition godoc
// @Summary Submit a purchase requisition
// @Description Creates a requisition owned by the caller. It starts pending HOD approval.
// @Tags requisitions
// @Accept  json
// @Produce  json
// @Param   requisition body dto.CreateRequisitionRequest true "Requisition details"
// @Success 201 {object} domain.Requisition
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Failed to submit requisition"
// @Security BearerAuth
// @Router /requisitions [post]
func (h *requisitionHandler) submitRequisition(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	var req dto.CreateRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	rec, err := h.requisitionService.SubmitRequisition(c.Request.Context(), identity, req)
	if err != nil {
		respondError(c, err, "Failed to submit requisition")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Requisition submitted", slog.String("transaction_id", rec.TransactionID))
	c.JSON(http.StatusCreated, rec)
}

// getRequisition godoc
// @Summary Get a requisition
// @Description Returns one requisition. Visible to its requester, the HOD of its department, Finance and Admin.
// @Tags requisitions
// @Produce  json
// @Param   id path string true "Requisition ID"
// @Success 200 {object} domain.Requisition
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Not found"
// @Security BearerAuth
// @Router /requisitions/{id} [get]
func (h *requisitionHandler) getRequisition(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	rec, err := h.requisitionService.GetRequisition(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve requisition")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// listOwnRequisitions godoc
// @Summary List my requisitions
// @Tags requisitions
// @Produce  json
// @Success 200 {array} domain.Requisition
// @Security BearerAuth
// @Router /requisitions/mine [get]
func (h *requisitionHandler) listOwnRequisitions(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	recs, err := h.requisitionService.ListOwnRequisitions(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err, "Failed to list requisitions")
		return
	}
	c.JSON(http.StatusOK, recs)
}

// listDepartmentPending godoc
// @Summary List requisitions awaiting HOD decision
// @Description HODs see their own department. Admin and SuperUser may pass a department.
// @Tags requisitions
// @Produce  json
// @Param   department query string false "Department (Admin/SuperUser only)"
// @Success 200 {array} domain.Requisition
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Security BearerAuth
// @Router /requisitions/department/pending [get]
func (h *requisitionHandler) listDepartmentPending(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	recs, err := h.requisitionService.ListDepartmentPending(c.Request.Context(), identity, c.Query("department"))
	if err != nil {
		respondError(c, err, "Failed to list department requisitions")
		return
	}
	c.JSON(http.StatusOK, recs)
}

// listFinancePending godoc
// @Summary List requisitions awaiting Finance decision
// @Tags requisitions
// @Produce  json
// @Success 200 {array} domain.Requisition
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Security BearerAuth
// @Router /requisitions/finance/pending [get]
func (h *requisitionHandler) listFinancePending(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	recs, err := h.requisitionService.ListFinancePending(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err, "Failed to list finance requisitions")
		return
	}
	c.JSON(http.StatusOK, recs)
}

// listRequisitions godoc
// @Summary List all requisitions
// @Description Pages through every requisition, newest first, optionally narrowed by a filter expression.
// @Tags requisitions
// @Produce  json
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Token from the previous page"
// @Param   department query string false "Department"
// @Param   requestedBy query string false "Requester user ID"
// @Param   filter query string false "Filter expression, e.g. totalAmount > 5000 && hodStatus == \"Approved\""
// @Success 200 {object} dto.ListRequisitionsResponse
// @Failure 400 {object} ErrorResponse "Invalid filter or token"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Security BearerAuth
// @Router /requisitions [get]
func (h *requisitionHandler) listRequisitions(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	var params dto.ListRequisitionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}
	resp, err := h.requisitionService.ListRequisitions(c.Request.Context(), identity, params)
	if err != nil {
		respondError(c, err, "Failed to list requisitions")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// exportRequisitions godoc
// @Summary Export requisitions as a spreadsheet
// @Tags requisitions
// @Produce  application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param   filter query string false "Filter expression"
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse "Invalid filter"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Security BearerAuth
// @Router /requisitions/export.xlsx [get]
func (h *requisitionHandler) exportRequisitions(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.exportService.ExportRequisitionsXLSX(c.Request.Context(), identity, c.Query("filter"), &buf); err != nil {
		respondError(c, err, "Failed to export requisitions")
		return
	}
	filename := fmt.Sprintf("requisitions-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// decideRequisition godoc
// @Summary Approve or decline a requisition
// @Description Records the caller's decision acting as HOD or Finance. version must match the stored record.
// @Tags requisitions
// @Accept  json
// @Produce  json
// @Param   id path string true "Requisition ID"
// @Param   decision body dto.DecisionRequest true "Decision"
// @Success 200 {object} domain.Requisition
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 409 {object} ErrorResponse "Stale version"
// @Failure 422 {object} ErrorResponse "Decision not allowed in current state"
// @Security BearerAuth
// @Router /requisitions/{id}/decision [post]
func (h *requisitionHandler) decideRequisition(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	rec, err := h.requisitionService.DecideRequisition(c.Request.Context(), identity, c.Param("id"), req)
	if err != nil {
		respondError(c, err, "Failed to record decision")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// splitRequisition godoc
// @Summary Split a requisition by amount
// @Tags requisitions
// @Accept  json
// @Produce  json
// @Param   id path string true "Requisition ID"
// @Param   split body dto.SplitRequisitionRequest true "Children and reason"
// @Success 200 {object} dto.SplitResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 409 {object} ErrorResponse "Stale version"
// @Failure 422 {object} ErrorResponse "Record cannot be split"
// @Security BearerAuth
// @Router /requisitions/{id}/split [post]
func (h *requisitionHandler) splitRequisition(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	var req dto.SplitRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	res, err := h.requisitionService.SplitRequisition(c.Request.Context(), identity, c.Param("id"), req)
	if err != nil {
		respondError(c, err, "Failed to split requisition")
		return
	}
	c.JSON(http.StatusOK, dto.ToSplitResponse(res))
}

// splitRequisitionByItems godoc
// @Summary Split selected line items into their own requisitions
// @Tags requisitions
// @Accept  json
// @Produce  json
// @Param   id path string true "Requisition ID"
// @Param   split body dto.SplitByItemsRequest true "Item indices"
// @Success 200 {object} dto.SplitResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 409 {object} ErrorResponse "Stale version"
// @Failure 422 {object} ErrorResponse "Record cannot be split"
// @Security BearerAuth
// @Router /requisitions/{id}/split-items [post]
func (h *requisitionHandler) splitRequisitionByItems(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	var req dto.SplitByItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	res, err := h.requisitionService.SplitRequisitionByItems(c.Request.Context(), identity, c.Param("id"), req)
	if err != nil {
		respondError(c, err, "Failed to split requisition")
		return
	}
	c.JSON(http.StatusOK, dto.ToSplitResponse(res))
}
