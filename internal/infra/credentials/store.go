package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"bananaart/internal/infra"
	"bananaart/internal/sqlinline"
)

const (
	ProviderGemini = "gemini"
)

// Credential is a stored provider key plus the model it was registered for.
type Credential struct {
	Token string
	Model string
}

// Store keeps provider API keys in integration_tokens.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	cred, err := s.Lookup(ctx, ProviderGemini)
	return cred.Token, err
}

// ResolveGemini prefers configured values and fills the gaps from the stored
// credential. A configured key skips the lookup entirely.
func (s *Store) ResolveGemini(ctx context.Context, configuredKey, configuredModel string) (Credential, error) {
	out := Credential{Token: strings.TrimSpace(configuredKey), Model: strings.TrimSpace(configuredModel)}
	if out.Token != "" {
		return out, nil
	}
	stored, err := s.Lookup(ctx, ProviderGemini)
	if err != nil {
		return out, err
	}
	out.Token = stored.Token
	if out.Model == "" {
		out.Model = stored.Model
	}
	return out, nil
}

// Lookup returns the stored credential, or a zero Credential when none exists.
func (s *Store) Lookup(ctx context.Context, provider string) (Credential, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var cred Credential
	if err := row.Scan(&cred.Token, &cred.Model); err != nil {
		if infra.IsNoRows(err) {
			return Credential{}, nil
		}
		return Credential{}, err
	}
	cred.Token = strings.TrimSpace(cred.Token)
	cred.Model = strings.TrimSpace(cred.Model)
	return cred, nil
}

func (s *Store) SetGeminiAPIKey(ctx context.Context, key string, model string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("gemini api key is required")
	}
	var props map[string]any
	if model = strings.TrimSpace(model); model != "" {
		props = map[string]any{"model": model}
	}
	return s.upsert(ctx, ProviderGemini, key, props)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
