package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scimdash/internal/interfaces"
	"github.com/ternarybob/scimdash/internal/models"
	"github.com/ternarybob/scimdash/internal/services/payload"
)

// Service holds the auth dialog state: an editable draft, per-field errors and the config
// committed by the last successful submit.
type Service struct {
	mu            sync.RWMutex
	draft         models.AuthConfig
	committed     *models.AuthConfig
	errors        models.ValidationErrors
	authenticated bool

	validate     *validator.Validate
	eventService interfaces.EventService
	logger       arbor.ILogger
}

// NewService creates the auth state with the default endpoint placeholder. Nothing is
// committed until Submit succeeds.
func NewService(defaultEndpoint string, defaultMode models.AuthMode, eventService interfaces.EventService, logger arbor.ILogger) *Service {
	if defaultMode == "" {
		defaultMode = models.AuthModeBasic
	}
	return &Service{
		draft: models.AuthConfig{
			Endpoint: defaultEndpoint,
			Mode:     defaultMode,
		},
		errors:       models.ValidationErrors{},
		validate:     payload.NewValidator(),
		eventService: eventService,
		logger:       logger,
	}
}

// SetField updates one draft field and clears any error recorded against it
func (s *Service) SetField(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case models.FieldEndpoint:
		s.draft.Endpoint = value
	case models.FieldUserName:
		s.draft.UserName = value
	case models.FieldPassword:
		s.draft.Password = value
	case models.FieldToken:
		s.draft.Token = value
	case models.FieldMode:
		mode, err := models.ParseAuthMode(value)
		if err != nil {
			return err
		}
		s.setModeLocked(mode)
	default:
		return fmt.Errorf("unknown auth field %q", name)
	}

	delete(s.errors, name)
	return nil
}

// SetMode switches between basic and bearer credentials
func (s *Service) SetMode(mode models.AuthMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setModeLocked(mode)
	delete(s.errors, models.FieldMode)
}

// setModeLocked drops errors on fields the new mode no longer requires
func (s *Service) setModeLocked(mode models.AuthMode) {
	s.draft.Mode = mode
	switch mode {
	case models.AuthModeBasic:
		delete(s.errors, models.FieldToken)
	case models.AuthModeBearer:
		delete(s.errors, models.FieldUserName)
		delete(s.errors, models.FieldPassword)
	}
}

// Submit validates the draft. On success the draft is committed and all errors cleared;
// otherwise the errors are stored and returned as a *models.ValidationError.
func (s *Service) Submit(ctx context.Context) error {
	s.mu.Lock()

	fields := payload.ValidateAuth(s.validate, s.draft)
	if len(fields) > 0 {
		s.errors = fields
		s.mu.Unlock()

		s.logger.Debug().
			Strs("fields", fields.Fields()).
			Msg("Auth submit rejected")
		return &models.ValidationError{Fields: fields.Clone(), Message: payload.MsgFillAuth}
	}

	committed := s.draft
	s.committed = &committed
	s.errors = models.ValidationErrors{}
	s.authenticated = true
	s.mu.Unlock()

	s.logger.Info().
		Str("endpoint", committed.Endpoint).
		Str("mode", string(committed.Mode)).
		Msg("Auth details committed")

	if s.eventService != nil {
		event := interfaces.Event{
			Type: interfaces.EventAuthCommitted,
			Payload: map[string]interface{}{
				"endpoint": committed.Endpoint,
				"mode":     string(committed.Mode),
			},
		}
		if err := s.eventService.Publish(ctx, event); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to publish auth committed event")
		}
	}

	return nil
}

// Committed returns the last submitted config, or false if nothing was committed
func (s *Service) Committed() (models.AuthConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.committed == nil {
		return models.AuthConfig{}, false
	}
	return *s.committed, true
}

// Draft returns the config currently being edited
func (s *Service) Draft() models.AuthConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft
}

// Errors returns a copy of the outstanding field errors
func (s *Service) Errors() models.ValidationErrors {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errors.Clone()
}

// IsAuthenticated reports whether a config has been committed
func (s *Service) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// State returns the redacted view used by the dashboard and API
func (s *Service) State() models.AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := models.AuthState{
		Draft:         s.draft.Redacted(),
		Errors:        s.errors.Clone(),
		Authenticated: s.authenticated,
	}
	if s.committed != nil {
		c := s.committed.Redacted()
		state.Committed = &c
	}
	return state
}
