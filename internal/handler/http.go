package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gymkapp-server/internal/authutils"
	"gymkapp-server/internal/middleware"
	"gymkapp-server/internal/models"
	"gymkapp-server/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// GameHandler serves the game session HTTP API.
type GameHandler struct {
	service       service.ProgressionService
	logger        *zap.Logger
	tokenVerifier *authutils.JWTVerifier
}

// NewGameHandler creates a GameHandler with its own token verifier.
func NewGameHandler(s service.ProgressionService, logger *zap.Logger, jwtSecret string) *GameHandler {
	verifier, err := authutils.NewJWTVerifier(jwtSecret, logger)
	if err != nil {
		logger.Fatal("Failed to create JWT Verifier", zap.Error(err))
	}

	return &GameHandler{
		service:       s,
		logger:        logger.Named("GameHandler"),
		tokenVerifier: verifier,
	}
}

// RegisterRoutes registers the game session routes.
func (h *GameHandler) RegisterRoutes(e *echo.Echo) {
	authMiddleware := echo.WrapMiddleware(middleware.AuthMiddleware(h.tokenVerifier.VerifyToken, h.logger))

	gameGroup := e.Group("/game", authMiddleware)
	{
		gameGroup.POST("/start", h.startGame)
		gameGroup.GET("/:id", h.getSession)
		gameGroup.POST("/:id/location", h.submitLocation)
		gameGroup.POST("/:id/stats", h.recordStats)
		gameGroup.POST("/:id/abandon", h.abandonSession)
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
}

// getUserIDFromContext extracts the authenticated user ID set by the auth
// middleware.
func getUserIDFromContext(c echo.Context) (uuid.UUID, error) {
	userIDVal := c.Request().Context().Value(models.UserContextKey)
	if userIDVal == nil {
		return uuid.Nil, fmt.Errorf("user_id not found in context")
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("invalid user_id type in context: %T", userIDVal)
	}
	if userID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid nil user_id in context")
	}
	return userID, nil
}

func handleServiceError(c echo.Context, err error) error {
	var statusCode int
	var apiErr APIError

	switch {
	case errors.Is(err, models.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		apiErr = APIError{Message: "Unauthorized"}
	case errors.Is(err, models.ErrForbidden):
		statusCode = http.StatusForbidden
		apiErr = APIError{Message: "Forbidden"}
	case errors.Is(err, models.ErrMapNotFound) || errors.Is(err, models.ErrSessionNotFound) || errors.Is(err, models.ErrStageNotFound):
		statusCode = http.StatusNotFound
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrMapHasNoStages):
		statusCode = http.StatusUnprocessableEntity
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrSessionClosed) || errors.Is(err, models.ErrSessionStillActive):
		statusCode = http.StatusConflict
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrProgressCorrupted):
		statusCode = http.StatusInternalServerError
		apiErr = APIError{Message: "Internal server error"}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		statusCode = http.StatusServiceUnavailable
		apiErr = APIError{Message: "Temporarily unable to process the request, please retry"}
	default:
		statusCode = http.StatusInternalServerError
		apiErr = APIError{Message: "Internal server error"}
	}
	return c.JSON(statusCode, apiErr)
}

func (h *GameHandler) startGame(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	var req startGameRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	mapID, err := uuid.Parse(req.MapID)
	if err != nil {
		h.logger.Warn("Invalid map ID format in startGame", zap.String("mapId", req.MapID), zap.Error(err))
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid map ID format"})
	}

	start := models.GeoPoint{Latitude: req.Location.Latitude, Longitude: req.Location.Longitude}
	session, firstStage, err := h.service.StartSession(c.Request().Context(), userID, mapID, start)
	if err != nil {
		if !errors.Is(err, models.ErrMapNotFound) && !errors.Is(err, models.ErrMapHasNoStages) {
			h.logger.Error("Error starting game session (unhandled)",
				zap.String("userID", userID.String()), zap.Error(err))
		}
		return handleServiceError(c, err)
	}

	sessionsStartedTotal.Inc()
	return c.JSON(http.StatusCreated, startGameResponse{
		Session:    toSessionResponse(session),
		FirstStage: *toStageDTO(firstStage),
	})
}

func (h *GameHandler) getSession(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid session ID format"})
	}

	session, err := h.service.GetSession(c.Request().Context(), userID, sessionID)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toSessionResponse(session))
}

func (h *GameHandler) submitLocation(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid session ID format"})
	}

	var req submitLocationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Coordinates out of range"})
	}

	sample := models.LocationSample{
		Point: models.GeoPoint{Latitude: req.Latitude, Longitude: req.Longitude},
	}
	if req.Timestamp != nil {
		sample.Timestamp = *req.Timestamp
	}

	outcome, err := h.service.SubmitLocation(c.Request().Context(), userID, sessionID, sample)
	if err != nil {
		if errors.Is(err, models.ErrProgressCorrupted) {
			h.logger.Error("Progress corruption detected in submitLocation",
				zap.String("sessionID", sessionID.String()), zap.Error(err))
		}
		return handleServiceError(c, err)
	}

	locationSubmissionsTotal.WithLabelValues(string(outcome.Kind)).Inc()
	if outcome.Kind == models.OutcomeFinished {
		sessionsFinishedTotal.Inc()
	}
	return c.JSON(http.StatusOK, toSubmitLocationResponse(outcome))
}

func (h *GameHandler) recordStats(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid session ID format"})
	}

	var req recordStatsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	session, err := h.service.RecordStats(c.Request().Context(), userID, sessionID, req.Punctuation, req.Comment)
	if err != nil {
		return handleServiceError(c, err)
	}

	statsRecordedTotal.Inc()
	return c.JSON(http.StatusOK, toSessionResponse(session))
}

func (h *GameHandler) abandonSession(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid session ID format"})
	}

	session, err := h.service.AbandonSession(c.Request().Context(), userID, sessionID)
	if err != nil {
		return handleServiceError(c, err)
	}

	sessionsAbandonedTotal.Inc()
	return c.JSON(http.StatusOK, toSessionResponse(session))
}
