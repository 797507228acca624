package api

import (
	"errors"
	"net/http"

	"ipnote/internal/models"
	"ipnote/internal/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	Service *service.MessageService
}

func NewAPIHandler(service *service.MessageService) *Handler {
	return &Handler{Service: service}
}

type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

type IPResponse struct {
	IP string `json:"ip"`
}

type DeleteResponse struct {
	Message string `json:"message"`
}

type pageQuery struct {
	Cursor string `form:"cursor"`
	Limit  *int   `form:"limit" binding:"omitempty,min=1,max=50"`
}

func (q pageQuery) limit() int {
	if q.Limit == nil {
		return service.DefaultPageLimit
	}
	return *q.Limit
}

const (
	msgInvalidBody  = "요청 본문이 올바르지 않습니다."
	msgInvalidLimit = "limit은 1에서 50 사이여야 합니다."
	msgInternal     = "서버 오류가 발생했습니다."
)

// CreateMessage
// @Summary      새로운 쪽지 생성
// @Tags         Messages
// @Accept       json
// @Produce      json
// @Param        message  body      service.SendInput  true  "쪽지 내용"
// @Success      201      {object}  models.Message
// @Failure      400      {object}  ErrorResponse
// @Router       /messages [post]
func (h *Handler) CreateMessage(c *gin.Context) {
	var req service.SendInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, msgInvalidBody)
		return
	}
	msg, err := h.Service.Send(c.Request.Context(), ClientIP(c.Request), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// MyIP
// @Summary      요청자 IP 조회
// @Tags         Messages
// @Produce      json
// @Success      200  {object}  IPResponse
// @Router       /messages/my-ip [get]
func (h *Handler) MyIP(c *gin.Context) {
	c.JSON(http.StatusOK, IPResponse{IP: ClientIP(c.Request)})
}

// Nearby
// @Summary      같은 네트워크의 사용자 조회
// @Tags         Messages
// @Produce      json
// @Success      200  {object}  models.NearbyUsers
// @Router       /messages/nearby [get]
func (h *Handler) Nearby(c *gin.Context) {
	users, err := h.Service.Nearby(c.Request.Context(), ClientIP(c.Request))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// Inbox
// @Summary      받은 쪽지 목록 조회
// @Tags         Messages
// @Produce      json
// @Param        cursor  query  string  false  "이전 페이지의 마지막 쪽지 ID"
// @Param        limit   query  int     false  "가져올 최대 쪽지 수 (1-50)"
// @Success      200  {object}  models.Page
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /messages/inbox [get]
func (h *Handler) Inbox(c *gin.Context) {
	q, ok := bindPage(c)
	if !ok {
		return
	}
	page, err := h.Service.ListInbox(c.Request.Context(), ClientIP(c.Request), q.Cursor, q.limit())
	respondPage(c, page, err)
}

// Sent
// @Summary      보낸 쪽지 목록 조회
// @Tags         Messages
// @Produce      json
// @Param        cursor  query  string  false  "이전 페이지의 마지막 쪽지 ID"
// @Param        limit   query  int     false  "가져올 최대 쪽지 수 (1-50)"
// @Success      200  {object}  models.Page
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /messages/sent [get]
func (h *Handler) Sent(c *gin.Context) {
	q, ok := bindPage(c)
	if !ok {
		return
	}
	page, err := h.Service.ListSent(c.Request.Context(), ClientIP(c.Request), q.Cursor, q.limit())
	respondPage(c, page, err)
}

// ByStatus
// @Summary      상태별 쪽지 조회
// @Tags         Messages
// @Produce      json
// @Param        status  path   string  true   "sent, canceled, failed"
// @Param        cursor  query  string  false  "이전 페이지의 마지막 쪽지 ID"
// @Param        limit   query  int     false  "가져올 최대 쪽지 수 (1-50)"
// @Success      200  {object}  models.Page
// @Failure      400  {object}  ErrorResponse
// @Router       /messages/status/{status} [get]
func (h *Handler) ByStatus(c *gin.Context) {
	q, ok := bindPage(c)
	if !ok {
		return
	}
	status := models.Status(c.Param("status"))
	page, err := h.Service.ListByStatus(c.Request.Context(), status, q.Cursor, q.limit())
	respondPage(c, page, err)
}

// GetMessage
// @Summary      쪽지 상세 조회
// @Tags         Messages
// @Produce      json
// @Param        id   path      string  true  "쪽지 ID"
// @Success      200  {object}  models.Message
// @Failure      404  {object}  ErrorResponse
// @Router       /messages/{id} [get]
func (h *Handler) GetMessage(c *gin.Context) {
	msg, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// CancelMessage
// @Summary      보낸 쪽지 취소
// @Tags         Messages
// @Produce      json
// @Param        id   path      string  true  "쪽지 ID"
// @Success      200  {object}  models.Message
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /messages/{id}/cancel [post]
func (h *Handler) CancelMessage(c *gin.Context) {
	msg, err := h.Service.Cancel(c.Request.Context(), c.Param("id"), ClientIP(c.Request))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// DeleteMessage
// @Summary      보낸 쪽지 삭제
// @Tags         Messages
// @Produce      json
// @Param        id   path      string  true  "쪽지 ID"
// @Success      200  {object}  DeleteResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /messages/{id} [delete]
func (h *Handler) DeleteMessage(c *gin.Context) {
	if err := h.Service.Delete(c.Request.Context(), c.Param("id"), ClientIP(c.Request)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, DeleteResponse{Message: service.MsgDeleted})
}

func bindPage(c *gin.Context) (pageQuery, bool) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondMessage(c, http.StatusBadRequest, msgInvalidLimit)
		return q, false
	}
	return q, true
}

func respondPage(c *gin.Context, page *models.Page, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func respondError(c *gin.Context, err error) {
	var se *service.Error
	if errors.As(err, &se) {
		respondMessage(c, statusFor(se.Kind), se.Message)
		return
	}
	log.WithError(err).Errorf("%s %s failed", c.Request.Method, c.FullPath())
	respondMessage(c, http.StatusInternalServerError, msgInternal)
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}

func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindValidation, service.KindConflict:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
