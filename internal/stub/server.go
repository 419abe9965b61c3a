// Package stub is a development stand-in for the remote reminder backend.
// It implements the backend's HTTP surface over an in-memory map so the
// client can be exercised offline and in tests. It deliberately does no
// natural-language parsing: /parse-message only understands the fixed form
// "<title> @ <RFC3339 instant>" and reports everything else as ambiguous.
package stub

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rappel-client/internal/model"
)

const defaultTimezone = "Europe/Paris"

type Server struct {
	mu        sync.RWMutex
	reminders map[string]model.Reminder
	now       func() time.Time
}

func NewServer() *Server {
	return &Server{
		reminders: make(map[string]model.Reminder),
		now:       time.Now,
	}
}

// Router builds the gin engine with the same paths, shapes and error bodies
// as the real backend.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": s.now().Unix()})
	})

	api := router.Group("/api")
	{
		api.POST("/parse-message", s.parseMessage)
		api.POST("/chat", s.chat)
		api.POST("/reminders", s.createReminder)
		api.GET("/reminders", s.listReminders)
		api.GET("/reminders/:id", s.getReminder)
		api.PATCH("/reminders/:id", s.updateReminder)
		api.DELETE("/reminders/:id", s.deleteReminder)
	}

	return router
}

func (s *Server) parseMessage(c *gin.Context) {
	var req model.ParseMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.parse(req.Message))
}

func (s *Server) chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	parsed := s.parse(req.Message)
	if parsed.DatetimeISO != nil {
		c.JSON(http.StatusOK, model.ChatResponse{
			Response:        "J'ai trouvé un rappel dans ton message. On le confirme ?",
			Type:            "confirmation",
			ParsedReminders: []model.ParsedReminder{parsed},
		})
		return
	}

	c.JSON(http.StatusOK, model.ChatResponse{
		Response:    "Je n'ai pas compris la date. Essaie le format \"titre @ 2026-09-01T15:00:00+02:00\".",
		Type:        "question",
		Suggestions: []string{"appeler Paul @ " + s.now().Add(24*time.Hour).Truncate(time.Minute).Format(time.RFC3339)},
	})
}

// parse understands only "<title> @ <RFC3339>"; anything else comes back
// ambiguous. Real interpretation belongs to the production backend.
func (s *Server) parse(message string) model.ParsedReminder {
	title, instant, ok := strings.Cut(message, "@")
	title = strings.TrimSpace(title)
	if ok {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(instant)); err == nil && title != "" {
			date := t.Format("2006-01-02")
			heure := t.Format("15:04")
			iso := t.Format(time.RFC3339)
			return model.ParsedReminder{
				Title:       title,
				Date:        &date,
				Time:        &heure,
				DatetimeISO: &iso,
				Timezone:    defaultTimezone,
			}
		}
	}

	reason := "message sans instant exploitable (forme attendue: titre @ RFC3339)"
	if title == "" {
		title = strings.TrimSpace(message)
	}
	return model.ParsedReminder{
		Title:           title,
		Timezone:        defaultTimezone,
		IsAmbiguous:     true,
		AmbiguityReason: &reason,
	}
}

func (s *Server) createReminder(c *gin.Context) {
	var draft model.ReminderCreate
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if draft.Title == "" || draft.DatetimeISO == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "title et datetime_iso sont requis"})
		return
	}
	if draft.Timezone == "" {
		draft.Timezone = defaultTimezone
	}

	now := s.now().UTC().Format(time.RFC3339)
	reminder := model.Reminder{
		ID:          uuid.New().String(),
		Title:       draft.Title,
		Description: draft.Description,
		DatetimeISO: draft.DatetimeISO,
		Timezone:    draft.Timezone,
		Status:      model.StatusScheduled,
		Recurrence:  draft.Recurrence,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.reminders[reminder.ID] = reminder
	s.mu.Unlock()

	c.JSON(http.StatusOK, reminder)
}

func (s *Server) listReminders(c *gin.Context) {
	status := c.Query("status")

	s.mu.RLock()
	out := make([]model.Reminder, 0, len(s.reminders))
	for _, r := range s.reminders {
		if status == "" || string(r.Status) == status {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	// Same ordering as the backend: ascending trigger instant.
	sort.Slice(out, func(i, j int) bool { return out[i].DatetimeISO < out[j].DatetimeISO })

	c.JSON(http.StatusOK, out)
}

func (s *Server) getReminder(c *gin.Context) {
	s.mu.RLock()
	reminder, ok := s.reminders[c.Param("id")]
	s.mu.RUnlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Rappel non trouvé"})
		return
	}
	c.JSON(http.StatusOK, reminder)
}

func (s *Server) updateReminder(c *gin.Context) {
	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	switch req.Status {
	case model.StatusScheduled, model.StatusCompleted, model.StatusCancelled:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"detail": "statut invalide"})
		return
	}

	s.mu.Lock()
	reminder, ok := s.reminders[c.Param("id")]
	if ok {
		reminder.Status = req.Status
		reminder.UpdatedAt = s.now().UTC().Format(time.RFC3339)
		s.reminders[reminder.ID] = reminder
	}
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Rappel non trouvé"})
		return
	}
	c.JSON(http.StatusOK, reminder)
}

func (s *Server) deleteReminder(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	_, ok := s.reminders[id]
	delete(s.reminders, id)
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Rappel non trouvé"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rappel supprimé avec succès", "id": id})
}
