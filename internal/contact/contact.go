// Package contact exposes the registrar-side contact operations:
// check, create, fetch, update and delete.
package contact

import (
	"context"
	"log/slog"

	"eppclient/internal/protocol"
	"eppclient/internal/session"
	"eppclient/pkg/errors"
)

// Statuses a registrar is allowed to set on its own contacts.
var allowedStatuses = map[string]bool{
	"clientDeleteProhibited": true,
	"clientUpdateProhibited": true,
}

// Record accumulates the server's view of one contact across calls,
// each reply merging shallowly into Fields with later values winning.
type Record struct {
	ID     string
	Fields map[string]any
}

func newRecord(id string) *Record {
	return &Record{ID: id, Fields: map[string]any{}}
}

func (r *Record) merge(res *protocol.Result) {
	if res == nil {
		return
	}
	for k, v := range res.Fields {
		r.Fields[k] = v
	}
}

// Str returns a field as a string, or "" when absent or non-scalar.
func (r *Record) Str(key string) string {
	if v, ok := r.Fields[key].(string); ok {
		return v
	}
	return ""
}

// Status returns the slash-joined status codes from the last fetch.
func (r *Record) Status() string { return r.Str("status") }

type Service struct {
	sess   *session.Session
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(sess *session.Session, opts ...Option) (*Service, error) {
	if sess == nil {
		return nil, errors.New(errors.CodeConfiguration, "session is required")
	}
	s := &Service{sess: sess, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Check reports whether the handle is free.
func (s *Service) Check(ctx context.Context, id string) (*protocol.CheckEntry, *protocol.Result, error) {
	if id == "" {
		return nil, nil, errors.New(errors.CodeUsage, "check requires a contact handle")
	}
	cmd := protocol.Command{
		Kind:    protocol.KindContact,
		Op:      protocol.OpCheck,
		Payload: protocol.ContactCheck{ID: id},
	}
	res, err := s.sess.Do(ctx, cmd, id)
	if err != nil {
		return nil, res, err
	}
	if len(res.Checks) == 0 {
		return nil, res, errors.New(errors.CodeDecode, "check reply carried no availability entry")
	}
	return &res.Checks[0], res, nil
}

// Create provisions a new contact and returns its record seeded with
// the creation reply. A missing handle is generated under the session's
// configured prefix.
func (s *Service) Create(ctx context.Context, c protocol.Contact) (*Record, error) {
	if c.ID == "" {
		c.ID = s.sess.NewHandle()
	}
	cmd := protocol.Command{
		Kind:    protocol.KindContact,
		Op:      protocol.OpCreate,
		Payload: protocol.ContactCreate{Contact: c},
	}
	res, err := s.sess.Do(ctx, cmd, c.ID)
	if err != nil {
		return nil, err
	}
	rec := newRecord(c.ID)
	rec.merge(res)
	s.logger.Info("contact created", "id", c.ID)
	return rec, nil
}

// Fetch loads a contact by handle.
func (s *Service) Fetch(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, errors.New(errors.CodeUsage, "fetch requires a contact handle")
	}
	cmd := protocol.Command{
		Kind:    protocol.KindContact,
		Op:      protocol.OpInfo,
		Payload: protocol.ContactInfo{ID: id},
	}
	res, err := s.sess.Do(ctx, cmd, id)
	if err != nil {
		return nil, err
	}
	rec := newRecord(id)
	rec.merge(res)
	return rec, nil
}

// Update applies field changes to a contact.
func (s *Service) Update(ctx context.Context, rec *Record, upd protocol.ContactUpdate) error {
	if rec == nil || rec.ID == "" {
		return errors.New(errors.CodeUsage, "update requires a fetched contact record")
	}
	upd.ID = rec.ID
	for _, status := range append(append([]string{}, upd.AddStatus...), upd.RemStatus...) {
		if !allowedStatuses[status] {
			return errors.Newf(errors.CodeUsage,
				"status %q not allowed, expecting clientDeleteProhibited or clientUpdateProhibited", status)
		}
	}
	cmd := protocol.Command{Kind: protocol.KindContact, Op: protocol.OpUpdate, Payload: upd}
	res, err := s.sess.Do(ctx, cmd, rec.ID)
	if err != nil {
		return err
	}
	rec.merge(res)
	return nil
}

// UpdateStatus adds or removes one client-side status flag.
func (s *Service) UpdateStatus(ctx context.Context, rec *Record, status string, add bool) error {
	upd := protocol.ContactUpdate{}
	if add {
		upd.AddStatus = []string{status}
	} else {
		upd.RemStatus = []string{status}
	}
	return s.Update(ctx, rec, upd)
}

// Delete removes a contact by handle. The registry refuses while the
// contact is still linked to a domain.
func (s *Service) Delete(ctx context.Context, id string) (*protocol.Result, error) {
	if id == "" {
		return nil, errors.New(errors.CodeUsage, "delete requires a contact handle")
	}
	cmd := protocol.Command{
		Kind:    protocol.KindContact,
		Op:      protocol.OpDelete,
		Payload: protocol.ContactDelete{ID: id},
	}
	return s.sess.Do(ctx, cmd, id)
}
