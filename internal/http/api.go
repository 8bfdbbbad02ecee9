package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"book-journal/internal/archive"
	"book-journal/internal/auth"
	"book-journal/internal/covers"
	"book-journal/internal/domain"
	"book-journal/internal/service"
	"book-journal/internal/storage"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users          service.UserService
	notes          service.NoteService
	tokens         *auth.TokenService
	covers         *covers.Client
	archive        archive.Manager
	storage        storage.Service
	bucket         string
	allowedOrigins []string
	logger         *logrus.Logger
}

type Config struct {
	Users          service.UserService
	Notes          service.NoteService
	Tokens         *auth.TokenService
	Covers         *covers.Client
	Archive        archive.Manager
	Storage        storage.Service
	Bucket         string
	AllowedOrigins []string
	Logger         *logrus.Logger
}

func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Handler{
		users:          cfg.Users,
		notes:          cfg.Notes,
		tokens:         cfg.Tokens,
		covers:         cfg.Covers,
		archive:        cfg.Archive,
		storage:        cfg.Storage,
		bucket:         cfg.Bucket,
		allowedOrigins: cfg.AllowedOrigins,
		logger:         cfg.Logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(h.allowedOrigins))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.GET("/me", auth.Middleware(h.tokens), h.me)
	}

	notesGroup := router.Group("/notes", auth.Middleware(h.tokens))
	{
		notesGroup.POST("", h.createNote)
		notesGroup.GET("", h.listNotes)
		notesGroup.GET("/cover-search", h.coverSearch)
		notesGroup.PUT("/:id", h.updateNote)
		notesGroup.DELETE("/:id", h.deleteNote)
	}

	// separate group: gin cannot mix /notes/cover-search with /notes/:id
	// in the same GET tree
	coversGroup := router.Group("/covers", auth.Middleware(h.tokens))
	{
		coversGroup.GET("/:id", h.noteCover)
	}
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "":
			if _, ok := allowed[origin]; ok {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				c.Writer.Header().Set("Vary", "Origin")
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (h *Handler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "username taken"})
			return
		}
		if isValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.serverError(c, err)
		return
	}

	h.respondWithToken(c, user)
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.serverError(c, err)
		return
	}

	h.respondWithToken(c, user)
}

func (h *Handler) respondWithToken(c *gin.Context, user *domain.User) {
	token, err := h.tokens.Issue(auth.Identity{ID: user.ID, Username: user.Username})
	if err != nil {
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userResponse{ID: user.ID, Username: user.Username},
	})
}

func (h *Handler) me(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), identity.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, userResponse{ID: user.ID, Username: user.Username})
}

type noteRequest struct {
	Title    string  `json:"title"`
	Review   string  `json:"review"`
	Rating   int     `json:"rating"`
	ReadDate string  `json:"read_date"`
	CoverURL *string `json:"cover_url"`
}

type NoteResponse struct {
	ID        int64   `json:"id"`
	UserID    string  `json:"user_id"`
	Title     string  `json:"title"`
	Review    string  `json:"review"`
	Rating    int     `json:"rating"`
	ReadDate  string  `json:"read_date"`
	CoverURL  *string `json:"cover_url"`
	CreatedAt string  `json:"created_at"`
}

func noteToResponse(note domain.Note) NoteResponse {
	return NoteResponse{
		ID:        note.ID,
		UserID:    note.UserID,
		Title:     note.Title,
		Review:    note.Review,
		Rating:    note.Rating,
		ReadDate:  note.ReadDate,
		CoverURL:  note.CoverURL,
		CreatedAt: note.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) createNote(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	note, err := h.notes.CreateNote(c.Request.Context(), identity.ID, service.NoteInput{
		Title:    req.Title,
		Review:   req.Review,
		Rating:   req.Rating,
		ReadDate: req.ReadDate,
		CoverURL: req.CoverURL,
	})
	if err != nil {
		if isValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.serverError(c, err)
		return
	}

	if h.archive != nil && note.CoverURL != nil {
		if err := h.archive.Enqueue(c.Request.Context(), note.ID); err != nil {
			h.logger.Warnf("enqueue cover archive for note %d: %v", note.ID, err)
		}
	}

	c.JSON(http.StatusOK, noteToResponse(*note))
}

func (h *Handler) listNotes(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	notes, err := h.notes.ListNotes(c.Request.Context(), identity.ID, domain.ParseNoteSort(c.Query("sort")))
	if err != nil {
		h.serverError(c, err)
		return
	}

	resp := make([]NoteResponse, len(notes))
	for i := range notes {
		resp[i] = noteToResponse(notes[i])
	}
	c.JSON(http.StatusOK, resp)
}

// noteID parses the :id path segment. An unparseable id is reported as
// not found, indistinguishable from a nonexistent note.
func noteID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Note not found"})
		return 0, false
	}
	return id, true
}

func (h *Handler) updateNote(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, ok := noteID(c)
	if !ok {
		return
	}

	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	note, err := h.notes.UpdateNote(c.Request.Context(), id, identity.ID, service.NoteInput{
		Title:    req.Title,
		Review:   req.Review,
		Rating:   req.Rating,
		ReadDate: req.ReadDate,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Note not found"})
			return
		}
		if isValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Note updated",
		"note":    noteToResponse(*note),
	})
}

func (h *Handler) deleteNote(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, ok := noteID(c)
	if !ok {
		return
	}

	// Remember the archived object before the row disappears.
	var coverObject string
	if h.storage != nil && h.bucket != "" {
		if note, err := h.notes.GetNote(c.Request.Context(), id, identity.ID); err == nil {
			coverObject = note.CoverObject
		}
	}

	if err := h.notes.DeleteNote(c.Request.Context(), id, identity.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Note not found"})
			return
		}
		h.serverError(c, err)
		return
	}

	// Best effort: a failed object delete is picked up by the next sweep.
	if coverObject != "" {
		if err := h.storage.DeleteObject(c.Request.Context(), h.bucket, coverObject); err != nil {
			h.logger.Warnf("delete archived cover %s: %v", coverObject, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Note deleted"})
}

func (h *Handler) coverSearch(c *gin.Context) {
	title := c.Query("title")
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title required"})
		return
	}

	var coverURL *string
	if url, ok := h.covers.Lookup(c.Request.Context(), title); ok {
		coverURL = &url
	}
	c.JSON(http.StatusOK, gin.H{"coverUrl": coverURL})
}

func (h *Handler) noteCover(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cover archive not configured"})
		return
	}

	id, ok := noteID(c)
	if !ok {
		return
	}

	note, err := h.notes.GetNote(c.Request.Context(), id, identity.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Note not found"})
			return
		}
		h.serverError(c, err)
		return
	}
	if note.CoverObject == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cover not archived"})
		return
	}

	url, err := h.storage.GetObjectURL(c.Request.Context(), h.bucket, note.CoverObject, 15*time.Minute)
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

// serverError logs the cause and hides it behind a generic response.
func (h *Handler) serverError(c *gin.Context, err error) {
	h.logger.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
}

func isValidation(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput)
}
