package testutil

import (
	"context"
	"errors"
	"io"

	"debtster_routes/internal/models"

	"github.com/sirupsen/logrus"
)

// Sessions resolves fixed tokens.
type Sessions map[string]models.Session

func (s Sessions) Resolve(_ context.Context, token string) (models.Session, error) {
	if sess, ok := s[token]; ok {
		return sess, nil
	}
	return models.Session{}, errors.New("token not found")
}

// DefaultSessions has one admin and collectors 7 and 8.
func DefaultSessions() Sessions {
	return Sessions{
		"admin": {UserID: 1, Role: models.RoleAdmin},
		"k7":    {UserID: 7, Role: models.RoleCollector},
		"k8":    {UserID: 8, Role: models.RoleCollector},
	}
}

// Logger discards everything.
func Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
