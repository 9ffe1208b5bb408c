package protocol

import (
	"eppclient/pkg/errors"
)

// Encode renders a command as a protocol XML document. Namespace
// declarations for object and extension elements come from the session's
// registry; keys the registry cannot resolve fall back to the built-in
// table so a sparse greeting never fails an encode on its own.
func Encode(cmd Command, reg *Registry, clTRID string) ([]byte, error) {
	if reg == nil {
		return nil, errors.New(errors.CodeConfiguration, "encode requires a namespace registry")
	}

	switch cmd.Op {
	case OpHello:
		return encodeHello(), nil
	case OpLogin, OpChangePassword:
		return encodeLogin(cmd, reg, clTRID)
	case OpLogout:
		return encodeLogout(reg, clTRID), nil
	case OpPoll:
		return encodePoll(cmd, reg, clTRID)
	}

	switch cmd.Kind {
	case KindContact:
		return encodeContact(cmd, reg, clTRID)
	case KindDomain:
		return encodeDomain(cmd, reg, clTRID)
	}
	return nil, errors.Newf(errors.CodeConfiguration, "no encoder for %s %s", cmd.Kind, cmd.Op)
}

// payload asserts the command payload type, turning a mismatch into a
// configuration error instead of a panic.
func payload[T any](cmd Command) (T, error) {
	p, ok := cmd.Payload.(T)
	if !ok {
		var zero T
		return zero, errors.Newf(errors.CodeConfiguration,
			"%s %s command requires a %T payload, got %T", cmd.Kind, cmd.Op, zero, cmd.Payload)
	}
	return p, nil
}

// nsAttrs resolves the qualifying attributes for a namespace key, falling
// back to the built-in table when the greeting did not advertise it.
func nsAttrs(reg *Registry, key string) ([]Attr, error) {
	if a := reg.Attrs(key); a != nil {
		return a, nil
	}
	for _, uri := range defaultURIs {
		k, seg, ok := deriveKey(uri)
		if ok && k == key {
			return Namespace{Key: key, URI: uri, SchemaLoc: uri + " " + seg + ".xsd"}.Attrs(), nil
		}
	}
	return nil, errors.Newf(errors.CodeConfiguration, "namespace key %q has no registry entry and no fallback", key)
}

func envelope(reg *Registry, children ...*Node) *Node {
	return El("epp", children...).SetAttrs(reg.EppAttrs())
}

// commandEnvelope wraps an operation element (plus an optional extension)
// in the standard command/clTRID structure.
func commandEnvelope(reg *Registry, op *Node, ext *Node, clTRID string) *Node {
	cmd := El("command", op)
	if ext != nil {
		cmd.Append(El("extension", ext))
	}
	cmd.Append(TextEl("clTRID", clTRID))
	return envelope(reg, cmd)
}

func encodeHello() []byte {
	return El("epp", El("hello")).SetAttr("xmlns", NSEpp).Serialize()
}

func encodeLogin(cmd Command, reg *Registry, clTRID string) ([]byte, error) {
	p, err := payload[Login](cmd)
	if err != nil {
		return nil, err
	}
	if p.ClientID == "" || p.Password == "" {
		return nil, errors.New(errors.CodeConfiguration, "login requires client id and password")
	}
	if cmd.Op == OpChangePassword && p.NewPassword == "" {
		return nil, errors.New(errors.CodeConfiguration, "password change requires a new password")
	}

	login := El("login",
		TextEl("clID", p.ClientID),
		TextEl("pw", p.Password),
	)
	if p.NewPassword != "" {
		login.Append(TextEl("newPW", p.NewPassword))
	}
	login.Append(El("options",
		TextEl("version", reg.Version()),
		TextEl("lang", reg.Language()),
	))

	svcs := El("svcs")
	for _, uri := range reg.ObjURIs() {
		svcs.Append(TextEl("objURI", uri))
	}
	if ext := reg.ExtURIs(); len(ext) > 0 {
		svcExt := El("svcExtension")
		for _, uri := range ext {
			svcExt.Append(TextEl("extURI", uri))
		}
		svcs.Append(svcExt)
	}
	login.Append(svcs)

	return commandEnvelope(reg, login, nil, clTRID).Serialize(), nil
}

func encodeLogout(reg *Registry, clTRID string) []byte {
	return commandEnvelope(reg, El("logout"), nil, clTRID).Serialize()
}

func encodePoll(cmd Command, reg *Registry, clTRID string) ([]byte, error) {
	p, err := payload[Poll](cmd)
	if err != nil {
		return nil, err
	}
	if p.Op != "req" && p.Op != "ack" {
		return nil, errors.Newf(errors.CodeConfiguration, "poll op must be req or ack, got %q", p.Op)
	}
	if p.Op == "ack" && p.MsgID == "" {
		return nil, errors.New(errors.CodeConfiguration, "poll ack requires a message id")
	}
	poll := El("poll").SetAttr("op", p.Op)
	if p.MsgID != "" {
		poll.SetAttr("msgID", p.MsgID)
	}
	return commandEnvelope(reg, poll, nil, clTRID).Serialize(), nil
}
