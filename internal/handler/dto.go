package handler

import (
	"time"

	"gymkapp-server/internal/models"
)

// APIError is the standard error response body.
type APIError struct {
	Message string `json:"message"`
}

type pointDTO struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type startGameRequest struct {
	MapID    string   `json:"mapId"`
	Location pointDTO `json:"location"`
}

type submitLocationRequest struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type recordStatsRequest struct {
	Punctuation int    `json:"punctuation"`
	Comment     string `json:"comment,omitempty"`
}

type stageDTO struct {
	ID         string   `json:"id"`
	OrderIndex int      `json:"orderIndex"`
	Name       string   `json:"name,omitempty"`
	Hint       string   `json:"hint,omitempty"`
	Location   pointDTO `json:"location"`
}

type progressEntryDTO struct {
	StageID     string     `json:"stageId"`
	OrderIndex  int        `json:"orderIndex"`
	Tries       int        `json:"tries"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type sessionResponse struct {
	ID          string             `json:"id"`
	MapID       string             `json:"mapId"`
	Status      string             `json:"status"`
	StartedAt   time.Time          `json:"startedAt"`
	EndedAt     *time.Time         `json:"endedAt,omitempty"`
	Punctuation *int               `json:"punctuation,omitempty"`
	Comment     *string            `json:"comment,omitempty"`
	Progress    []progressEntryDTO `json:"progress"`
}

type startGameResponse struct {
	Session    sessionResponse `json:"session"`
	FirstStage stageDTO        `json:"firstStage"`
}

type submitLocationResponse struct {
	Outcome   string    `json:"outcome"`
	Tries     int       `json:"tries"`
	NextStage *stageDTO `json:"nextStage,omitempty"`
}

func toStageDTO(stage *models.Stage) *stageDTO {
	if stage == nil {
		return nil
	}
	return &stageDTO{
		ID:         stage.ID.String(),
		OrderIndex: stage.OrderIndex,
		Name:       stage.Name,
		Hint:       stage.Hint,
		Location: pointDTO{
			Latitude:  stage.Location.Latitude,
			Longitude: stage.Location.Longitude,
		},
	}
}

func toSessionResponse(session *models.GameSession) sessionResponse {
	progress := make([]progressEntryDTO, 0, len(session.Progress))
	for _, entry := range session.Progress {
		progress = append(progress, progressEntryDTO{
			StageID:     entry.StageID.String(),
			OrderIndex:  entry.OrderIndex,
			Tries:       entry.Attempts,
			CompletedAt: entry.CompletedAt,
		})
	}
	return sessionResponse{
		ID:          session.ID.String(),
		MapID:       session.MapID.String(),
		Status:      string(session.Status),
		StartedAt:   session.StartedAt,
		EndedAt:     session.EndedAt,
		Punctuation: session.Rating,
		Comment:     session.Comment,
		Progress:    progress,
	}
}

func toSubmitLocationResponse(outcome models.Outcome) submitLocationResponse {
	return submitLocationResponse{
		Outcome:   string(outcome.Kind),
		Tries:     outcome.Attempts,
		NextStage: toStageDTO(outcome.NextStage),
	}
}
