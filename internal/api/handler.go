package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EgorSenyagin/foodbot/internal/mirror"
	"github.com/EgorSenyagin/foodbot/internal/model"
	"github.com/EgorSenyagin/foodbot/internal/reminder"
	"github.com/EgorSenyagin/foodbot/internal/service/orders"
	"github.com/EgorSenyagin/foodbot/internal/store"
)

// Handler is the HTTP surface the menu/chat frontend talks to.
type Handler struct {
	svc      *orders.Service
	registry *reminder.Registry
	mirror   *mirror.Mirror
	sessions *SessionStore
}

// NewHandler creates the API handler.
func NewHandler(svc *orders.Service, registry *reminder.Registry, m *mirror.Mirror) *Handler {
	return &Handler{
		svc:      svc,
		registry: registry,
		mirror:   m,
		sessions: NewSessionStore(),
	}
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// Sessions
	router.POST("/session", h.CreateSession)
	router.GET("/session/:token", h.GetSession)
	router.PUT("/session/:token/date", h.SelectDate)

	// Date menu
	router.GET("/dates", h.ListDates)

	// Orders
	router.GET("/orders/:id/:date", h.GetOrder)
	router.PUT("/orders/:id/:date", h.PutOrder)
	router.POST("/orders/:id/day/:date", h.OrderDay)
	router.POST("/orders/:id/week/:date", h.OrderWeek)
	router.DELETE("/orders/:id/week/:date", h.CancelWeek)

	// Admin
	router.GET("/stats", h.GetStats)
	router.GET("/status", h.GetStatus)

	// Reminders
	router.GET("/reminders/:id", h.GetReminder)
	router.POST("/reminders/:id", h.ToggleReminder)
}

type createSessionRequest struct {
	StudentID string `json:"studentId" binding:"required"`
}

// CreateSession verifies a student id and opens a session.
// POST /api/session
func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный формат запроса"})
		return
	}

	student, err := h.svc.Lookup(req.StudentID)
	if err != nil {
		if errors.Is(err, store.ErrStudentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ученик не найден"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	sess := h.sessions.Create(student.ID)
	c.JSON(http.StatusOK, gin.H{"session": sess, "student": student})
}

// GetSession returns the session and its student.
// GET /api/session/:token
func (h *Handler) GetSession(c *gin.Context) {
	sess, ok := h.sessions.Get(c.Param("token"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "сессия не найдена"})
		return
	}
	student, err := h.svc.Lookup(sess.StudentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "ученик не найден"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess, "student": student})
}

type selectDateRequest struct {
	Date string `json:"date" binding:"required"`
}

// SelectDate records the date the user is viewing.
// PUT /api/session/:token/date
func (h *Handler) SelectDate(c *gin.Context) {
	var req selectDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный формат запроса"})
		return
	}
	dateKey, err := model.NormalizeDateKey(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверная дата"})
		return
	}
	if !h.sessions.SelectDate(c.Param("token"), dateKey) {
		c.JSON(http.StatusNotFound, gin.H{"error": "сессия не найдена"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": dateKey})
}

type dateEntry struct {
	Date   string `json:"date"`
	Locked bool   `json:"locked"`
}

// ListDates lists the upcoming working days with their current lock state.
// The lock state is advisory for the menu; every mutation re-checks it.
// GET /api/dates
func (h *Handler) ListDates(c *gin.Context) {
	keys := h.svc.Dates()
	out := make([]dateEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, dateEntry{Date: k, Locked: h.svc.IsLocked(k)})
	}
	c.JSON(http.StatusOK, gin.H{"dates": out})
}

// GetOrder returns the order state for (student, date).
// GET /api/orders/:id/:date
func (h *Handler) GetOrder(c *gin.Context) {
	set, err := h.svc.Flags(c.Param("id"), c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверная дата"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": c.Param("date"), "meals": set})
}

// PutOrder writes the full order state for (student, date).
// PUT /api/orders/:id/:date
func (h *Handler) PutOrder(c *gin.Context) {
	var set model.MealSet
	if err := c.ShouldBindJSON(&set); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный формат запроса"})
		return
	}
	h.applyMutation(c, func() error {
		return h.svc.SetFlags(c.Param("id"), c.Param("date"), set)
	}, func() gin.H {
		return gin.H{"date": c.Param("date"), "meals": set}
	})
}

// OrderDay sets all three meals for one date.
// POST /api/orders/:id/day/:date
func (h *Handler) OrderDay(c *gin.Context) {
	h.applyMutation(c, func() error {
		return h.svc.OrderDay(c.Param("id"), c.Param("date"))
	}, func() gin.H {
		return gin.H{"date": c.Param("date"), "meals": model.FullDay()}
	})
}

// OrderWeek orders every still-editable working day of the week.
// POST /api/orders/:id/week/:date
func (h *Handler) OrderWeek(c *gin.Context) {
	applied, err := h.svc.OrderWeek(c.Param("id"), c.Param("date"))
	if err != nil {
		h.writeMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied})
}

// CancelWeek clears every still-editable working day of the week.
// DELETE /api/orders/:id/week/:date
func (h *Handler) CancelWeek(c *gin.Context) {
	applied, err := h.svc.CancelWeek(c.Param("id"), c.Param("date"))
	if err != nil {
		h.writeMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied})
}

// GetStats returns today's and the next working day's totals.
// GET /api/stats
func (h *Handler) GetStats(c *gin.Context) {
	today, next, err := h.svc.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"today": today, "next": next})
}

type groupStatus struct {
	Sheet          string `json:"sheet"`
	AnchorRow      int    `json:"anchorRow"`
	AnchorFallback bool   `json:"anchorFallback"`
	ListRow        int    `json:"listRow"`
	ListFallback   bool   `json:"listFallback"`
	Dates          int    `json:"dates"`
	Students       int    `json:"students"`
}

// GetStatus reports mirror health: which groups were detected and which
// detections fell through to their fallback rows.
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	if h.mirror == nil {
		c.JSON(http.StatusOK, gin.H{"mirror": nil})
		return
	}
	layout := h.mirror.Layout()
	if layout == nil {
		c.JSON(http.StatusOK, gin.H{"mirror": gin.H{"loaded": false}})
		return
	}

	groups := make([]groupStatus, 0, len(layout.Groups))
	for _, g := range layout.Groups {
		groups = append(groups, groupStatus{
			Sheet:          g.Sheet,
			AnchorRow:      g.Anchor.Row,
			AnchorFallback: g.Anchor.Fallback,
			ListRow:        g.ListStart.Row,
			ListFallback:   g.ListStart.Fallback,
			Dates:          len(g.DateColumns),
			Students:       len(g.Students),
		})
	}
	c.JSON(http.StatusOK, gin.H{"mirror": gin.H{"loaded": true, "groups": groups}})
}

// GetReminder returns the subscription state.
// GET /api/reminders/:id
func (h *Handler) GetReminder(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"enabled": h.registry.Get(c.Param("id"))})
}

// ToggleReminder flips and persists the subscription.
// POST /api/reminders/:id
func (h *Handler) ToggleReminder(c *gin.Context) {
	enabled, err := h.registry.Toggle(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": enabled})
}

func (h *Handler) applyMutation(c *gin.Context, mutate func() error, ok func() gin.H) {
	if err := mutate(); err != nil {
		h.writeMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok())
}

func (h *Handler) writeMutationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orders.ErrEditLocked):
		c.JSON(http.StatusLocked, gin.H{"error": "редактирование запрещено"})
	case errors.Is(err, store.ErrStudentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "ученик не найден"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
