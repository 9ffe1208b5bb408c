// Package domain exposes the registrar-side domain operations: check,
// create, fetch, update, delete, transfer and restore. Every operation
// runs through an authenticated session and folds the server's reply
// into the domain record it concerns.
package domain

import (
	"context"
	"log/slog"
	"strings"

	"eppclient/internal/protocol"
	"eppclient/internal/session"
	"eppclient/pkg/errors"
)

// Statuses a registrar is allowed to set on its own domains.
var allowedStatuses = map[string]bool{
	"clientDeleteProhibited":   true,
	"clientUpdateProhibited":   true,
	"clientTransferProhibited": true,
	"clientHold":               true,
	"clientLock":               true,
}

// Record accumulates the server's view of one domain across calls.
// Each reply merges shallowly into Fields, later values winning, so a
// Fetch followed by an Update leaves the combined picture in place.
type Record struct {
	Name   string
	Fields map[string]any

	// Delegation and DS state as of the last create or fetch; update
	// diffs new values against these.
	NS []protocol.Host
	DS protocol.DSState
}

func newRecord(name string) *Record {
	return &Record{Name: name, Fields: map[string]any{}}
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

// Check reports availability for one or more names, in input order.
func (s *Service) Check(ctx context.Context, names ...string) ([]protocol.CheckEntry, *protocol.Result, error) {
	if len(names) == 0 {
		return nil, nil, errors.New(errors.CodeUsage, "check requires at least one domain name")
	}
	cmd := protocol.Command{
		Kind:    protocol.KindDomain,
		Op:      protocol.OpCheck,
		Payload: protocol.DomainCheck{Names: names},
	}
	res, err := s.sess.Do(ctx, cmd, strings.Join(names, ","))
	if err != nil {
		return nil, res, err
	}
	return res.Checks, res, nil
}

// Create registers a new domain and returns its record seeded with the
// creation reply. The nameserver and DS snapshots are taken from the
// request so a later UpdateHosts can diff against them.
func (s *Service) Create(ctx context.Context, p protocol.DomainCreate) (*Record, error) {
	if p.Name == "" {
		return nil, errors.New(errors.CodeUsage, "create requires a domain name")
	}
	cmd := protocol.Command{Kind: protocol.KindDomain, Op: protocol.OpCreate, Payload: p}
	res, err := s.sess.Do(ctx, cmd, p.Name)
	if err != nil {
		return nil, err
	}
	rec := newRecord(p.Name)
	rec.NS = p.NS
	if len(p.DS) > 0 {
		rec.DS = protocol.DSState{Records: p.DS}
	}
	rec.merge(res)
	s.logger.Info("domain created", "name", p.Name, "crdate", rec.Str("crData"))
	return rec, nil
}

// Fetch loads a domain. authInfo is needed for names sponsored by
// another registrar; scope selects which contact details ride along
// (all, registrant, admin or tech; anything else requests none).
func (s *Service) Fetch(ctx context.Context, name, authInfo, scope string) (*Record, error) {
	if name == "" {
		return nil, errors.New(errors.CodeUsage, "fetch requires a domain name")
	}
	switch strings.ToLower(scope) {
	case "all", "registrant", "admin", "tech":
		scope = strings.ToLower(scope)
	default:
		scope = ""
	}
	cmd := protocol.Command{
		Kind:    protocol.KindDomain,
		Op:      protocol.OpInfo,
		Payload: protocol.DomainInfo{Name: name, AuthInfo: authInfo, InfContacts: scope},
	}
	res, err := s.sess.Do(ctx, cmd, name)
	if err != nil {
		return nil, err
	}
	rec := newRecord(name)
	rec.merge(res)
	rec.NS = hostsFromFields(rec.Fields)
	rec.DS = dsFromFields(rec.Fields)
	return rec, nil
}

// UpdateRegistrant trades the domain to a new registrant contact. The
// registry treats this as a paid trade, so the auth code is mandatory.
func (s *Service) UpdateRegistrant(ctx context.Context, rec *Record, registrant, authInfo string) error {
	if err := checkRecord(rec); err != nil {
		return err
	}
	if registrant == "" || authInfo == "" {
		return errors.New(errors.CodeUsage, "registrant change requires the new registrant and an auth code")
	}
	return s.update(ctx, rec, protocol.DomainUpdate{
		Name:       rec.Name,
		Change:     protocol.ChangeRegistrant,
		Registrant: registrant,
		AuthInfo:   authInfo,
	})
}

// UpdateAdmin replaces the admin contact.
func (s *Service) UpdateAdmin(ctx context.Context, rec *Record, admin string) error {
	if err := checkRecord(rec); err != nil {
		return err
	}
	if admin == "" {
		return errors.New(errors.CodeUsage, "admin change requires a contact handle")
	}
	return s.update(ctx, rec, protocol.DomainUpdate{
		Name:   rec.Name,
		Change: protocol.ChangeAdmin,
		Admin:  admin,
	})
}

// UpdateHosts redelegates the domain: the encoder diffs ns against the
// record's current delegation and emits only the add and remove sets.
// ds carries the desired DS records when DNSSEC is active.
func (s *Service) UpdateHosts(ctx context.Context, rec *Record, ns []protocol.Host, ds []protocol.DSRecord) error {
	if err := checkRecord(rec); err != nil {
		return err
	}
	if len(ns) == 0 {
		return errors.New(errors.CodeUsage, "host change requires at least one nameserver")
	}
	err := s.update(ctx, rec, protocol.DomainUpdate{
		Name:   rec.Name,
		Change: protocol.ChangeHosts,
		NS:     ns,
		PrevNS: rec.NS,
		DS:     ds,
		PrevDS: rec.DS,
	})
	if err != nil {
		return err
	}
	rec.NS = ns
	if len(ds) > 0 {
		rec.DS = protocol.DSState{Records: ds}
	}
	return nil
}

// UpdateAuthInfo rotates the domain's auth code.
func (s *Service) UpdateAuthInfo(ctx context.Context, rec *Record, authInfo string) error {
	if err := checkRecord(rec); err != nil {
		return err
	}
	if authInfo == "" {
		return errors.New(errors.CodeUsage, "auth code must not be empty")
	}
	return s.update(ctx, rec, protocol.DomainUpdate{
		Name:     rec.Name,
		Change:   protocol.ChangeAuthInfo,
		AuthInfo: authInfo,
	})
}

// UpdateStatus adds or removes one client-side status flag.
func (s *Service) UpdateStatus(ctx context.Context, rec *Record, status string, add bool) error {
	if err := checkRecord(rec); err != nil {
		return err
	}
	if !allowedStatuses[status] {
		return errors.Newf(errors.CodeUsage,
			"status %q not allowed, expecting one of clientDeleteProhibited, clientUpdateProhibited, clientTransferProhibited, clientHold, clientLock", status)
	}
	upd := protocol.DomainUpdate{Name: rec.Name, Change: protocol.ChangeStatus}
	if add {
		upd.AddStatus = []string{status}
	} else {
		upd.RemStatus = []string{status}
	}
	return s.update(ctx, rec, upd)
}

func (s *Service) update(ctx context.Context, rec *Record, upd protocol.DomainUpdate) error {
	cmd := protocol.Command{Kind: protocol.KindDomain, Op: protocol.OpUpdate, Payload: upd}
	res, err := s.sess.Do(ctx, cmd, rec.Name)
	if err != nil {
		return err
	}
	rec.merge(res)
	return nil
}

// Delete removes the domain, placing it into the redemption grace
// period on the registry side.
func (s *Service) Delete(ctx context.Context, name string) (*protocol.Result, error) {
	if name == "" {
		return nil, errors.New(errors.CodeUsage, "delete requires a domain name")
	}
	cmd := protocol.Command{
		Kind:    protocol.KindDomain,
		Op:      protocol.OpDelete,
		Payload: protocol.DomainDelete{Name: name},
	}
	return s.sess.Do(ctx, cmd, name)
}

// Restore rescues a deleted domain from the redemption grace period.
func (s *Service) Restore(ctx context.Context, name string) (*protocol.Result, error) {
	if name == "" {
		return nil, errors.New(errors.CodeUsage, "restore requires a domain name")
	}
	cmd := protocol.Command{
		Kind:    protocol.KindDomain,
		Op:      protocol.OpRestore,
		Payload: protocol.DomainRestore{Name: name},
	}
	return s.sess.Do(ctx, cmd, name)
}

// Transfer runs one step of a registrar transfer. The request motive
// starts an incoming transfer (with the losing registrar's auth code
// and, for trades, the new registrant); approve, reject, cancel and
// query act on a pending one.
func (s *Service) Transfer(ctx context.Context, p protocol.DomainTransfer) (*protocol.Result, error) {
	if p.Name == "" {
		return nil, errors.New(errors.CodeUsage, "transfer requires a domain name")
	}
	cmd := protocol.Command{Kind: protocol.KindDomain, Op: protocol.OpTransfer, Payload: p}
	return s.sess.Do(ctx, cmd, p.Name)
}

func checkRecord(rec *Record) error {
	if rec == nil || rec.Name == "" {
		return errors.New(errors.CodeUsage, "operation requires a fetched domain record")
	}
	return nil
}

// hostsFromFields rebuilds the delegation list from a decoded info
// reply so later updates can diff against it.
func hostsFromFields(fields map[string]any) []protocol.Host {
	raw, ok := fields["ns"].([]any)
	if !ok {
		return nil
	}
	hosts := make([]protocol.Host, 0, len(raw))
	for _, h := range raw {
		m, ok := h.(map[string]any)
		if !ok {
			continue
		}
		host := protocol.Host{}
		if v, ok := m["hostName"].(string); ok {
			host.Name = v
		}
		if v, ok := m["hostAddr"].(string); ok {
			host.Addr = v
		}
		if v, ok := m["ip"].(string); ok {
			host.AddrType = v
		}
		if host.Name != "" {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

// dsFromFields rebuilds the DS state from a decoded info reply.
func dsFromFields(fields map[string]any) protocol.DSState {
	sec, ok := fields["secDNS"].(map[string]any)
	if !ok {
		return protocol.DSState{}
	}
	if _, ok := sec["remAll"]; ok {
		return protocol.DSState{All: true}
	}
	var records []protocol.DSRecord
	for _, key := range []string{"dsData", "dsOrKeysToValidate"} {
		raw, ok := sec[key]
		if !ok {
			continue
		}
		list, ok := raw.([]any)
		if !ok {
			list = []any{raw}
		}
		for _, d := range list {
			m, ok := d.(map[string]any)
			if !ok {
				continue
			}
			records = append(records, protocol.DSRecord{
				KeyTag:     atoiField(m, "keyTag"),
				Alg:        atoiField(m, "alg"),
				DigestType: atoiField(m, "digestType"),
				Digest:     strField(m, "digest"),
			})
		}
	}
	if len(records) == 0 {
		return protocol.DSState{}
	}
	return protocol.DSState{Records: records}
}

func strField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func atoiField(m map[string]any, key string) int {
	n := 0
	for _, c := range strField(m, key) {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
