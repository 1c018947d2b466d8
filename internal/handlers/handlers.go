package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ruhan456/Natural-Disaster-Severity-Mapping/internal/classifier"
	"github.com/Ruhan456/Natural-Disaster-Severity-Mapping/internal/repository"
	"github.com/Ruhan456/Natural-Disaster-Severity-Mapping/internal/usecase"
)

// MaxUploadSize caps the size of an uploaded report image.
const MaxUploadSize = 10 << 20

// ReportService is the slice of the ingestion pipeline the handlers need.
type ReportService interface {
	SubmitReport(ctx context.Context, submission usecase.ReportSubmission) (*classifier.Result, error)
	ListDisasters(ctx context.Context) ([]repository.DisasterRecord, error)
}

// AccountService is the slice of the account use case the handlers need.
type AccountService interface {
	Register(ctx context.Context, username, password string) error
	Check(ctx context.Context, username, password string) (string, error)
}

// Handler wires the HTTP surface to the use cases.
type Handler struct {
	reports  ReportService
	accounts AccountService
}

// NewHandler creates a new handler instance.
func NewHandler(reports ReportService, accounts AccountService) *Handler {
	return &Handler{reports: reports, accounts: accounts}
}

// RegisterRoutes attaches all routes to the Gin router. When authRequired is
// non-nil it gates the report endpoints.
func (h *Handler) RegisterRoutes(router *gin.Engine, authRequired gin.HandlerFunc) {
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Welcome to the API!")
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/api/data", h.registerUser)
	router.POST("/api/check", h.checkUser)

	reports := router.Group("/")
	if authRequired != nil {
		reports.Use(authRequired)
	}
	reports.POST("/predict", h.predict)
	reports.GET("/disasters", h.listDisasters)
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) registerUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	if err := h.accounts.Register(c.Request.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, usecase.ErrDuplicateUsername) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User added successfully"})
}

func (h *Handler) checkUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	token, err := h.accounts.Check(c.Request.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, usecase.ErrUnknownUser):
		c.JSON(http.StatusNotFound, gin.H{"exists": false, "message": "Username not found"})
	case errors.Is(err, usecase.ErrWrongPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"exists": false, "message": "Incorrect password"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check credentials"})
	default:
		c.JSON(http.StatusOK, gin.H{"exists": true, "token": token})
	}
}

func (h *Handler) predict(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided"})
		return
	}
	if file.Size > MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open image"})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
		return
	}

	submission := usecase.ReportSubmission{
		Filename:     file.Filename,
		Image:        data,
		DisasterType: c.PostForm("disasterType"),
		LocationJSON: c.PostForm("location"),
	}

	result, err := h.reports.SubmitReport(c.Request.Context(), submission)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrMissingImage),
			errors.Is(err, usecase.ErrUnsupportedFormat),
			errors.Is(err, usecase.ErrMalformedLocation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to classify image"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"predicted_class": result.Label,
		"probabilities":   result.Probabilities,
	})
}

type disasterResponse struct {
	ID       string           `json:"_id"`
	Category string           `json:"category"`
	Type     string           `json:"type"`
	Location usecase.Location `json:"location"`
}

func (h *Handler) listDisasters(c *gin.Context) {
	records, err := h.reports.ListDisasters(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]disasterResponse, 0, len(records))
	for _, r := range records {
		out = append(out, disasterResponse{
			ID:       r.ID,
			Category: r.Category,
			Type:     r.Type,
			Location: usecase.Location{Lat: r.Latitude, Lon: r.Longitude},
		})
	}

	c.JSON(http.StatusOK, out)
}
