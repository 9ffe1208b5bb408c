package protocol

import (
	"strconv"
	"strings"

	"eppclient/pkg/errors"
)

func encodeDomain(cmd Command, reg *Registry, clTRID string) ([]byte, error) {
	switch cmd.Op {
	case OpCheck:
		return encodeDomainCheck(cmd, reg, clTRID)
	case OpCreate:
		return encodeDomainCreate(cmd, reg, clTRID)
	case OpInfo:
		return encodeDomainInfo(cmd, reg, clTRID)
	case OpUpdate:
		return encodeDomainUpdate(cmd, reg, clTRID)
	case OpDelete:
		return encodeDomainDelete(cmd, reg, clTRID)
	case OpTransfer:
		return encodeDomainTransfer(cmd, reg, clTRID)
	case OpRestore:
		return encodeDomainRestore(cmd, reg, clTRID)
	}
	return nil, errors.Newf(errors.CodeConfiguration, "domain objects do not support %s", cmd.Op)
}

func encodeDomainCheck(cmd Command, reg *Registry, clTRID string) ([]byte, error) {
	p, err := payload[DomainCheck](cmd)
	if err != nil {
		return nil, err
	}
	if len(p.Names) == 0 {
		return nil, errors.New(errors.CodeConfiguration, "domain check requires at least one name")
	}
	attrs, err := nsAttrs(reg, "domain")
	if err != nil {
		return nil, err
	}
	check := El("domain:check").SetAttrs(attrs)
	for _, name := range p.Names {
		check.Append(TextEl("domain:name", name))
	}
	return commandEnvelope(reg, El("check", check), nil, clTRID).Serialize(), nil
}

func encodeDomainCreate(cmd Command, reg *Registry, clTRID string) ([]byte, error) {
	p, err := payload[DomainCreate](cmd)
	if err != nil {
		return nil, err
	}
	if p.Name == "" || p.Registrant == "" {
		return nil, errors.New(errors.CodeConfiguration, "domain create requires name and registrant")
	}
	attrs, err := nsAttrs(reg, "domain")
	if err != nil {
		return nil, err
	}

	period := p.Period
	if period == 0 {
		period = 1
	}

	create := El("domain:create",
		TextEl("domain:name", p.Name),
		TextEl("domain:period", strconv.Itoa(period)).SetAttr("unit", "y"),
	).SetAttrs(attrs)

	if len(p.NS) > 0 {
		ns := El("domain:ns")
		for _, h := range p.NS {
			ns.Append(hostAttr(h))
		}
		create.Append(ns)
	}
	create.Append(
		TextEl("domain:registrant", p.Registrant),
		TextEl("domain:contact", p.Admin).SetAttr("type", "admin"),
	)
	for _, tech := range p.Tech {
		create.Append(TextEl("domain:contact", tech).SetAttr("type", "tech"))
	}
	create.Append(El("domain:authInfo", TextEl("domain:pw", p.AuthInfo)))

	var ext *Node
	if reg.DNSSEC() && len(p.DS) > 0 {
		extAttrs, err := nsAttrs(reg, "secDNS")
		if err != nil {
			return nil, err
		}
		ext = El("secDNS:create").SetAttrs(extAttrs)
		for _, ds := range p.DS {
			ext.Append(dsData(ds))
		}
	}
	return commandEnvelope(reg, El("create", create), ext, clTRID).Serialize(), nil
}

func encodeDomainInfo(cmd Command, reg *Registry, clTRID string) ([]byte, error) {
	p, err := payload[DomainInfo](cmd)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, errors.New(errors.CodeConfiguration, "domain info requires a name")
	}
	attrs, err := nsAttrs(reg, "domain")
	if err != nil {
		return nil, err
	}

	info := El("domain:info",
		TextEl("domain:name", p.Name).SetAttr("hosts", "all"),
	).SetAttrs(attrs)
	if p.AuthInfo != "" {
		info.Append(El("domain:authInfo", TextEl("domain:pw", p.AuthInfo)))
	}

	var ext *Node
	if p.InfContacts != "" {
		extAttrs, err := nsAttrs(reg, "extdom")
		if err != nil {
			return nil, err
		}
		ext = El("extdom:infContacts").SetAttr("op", p.InfContacts).SetAttrs(extAttrs)
	}
	return commandEnvelope(reg, El("info", info), ext, clTRID).Serialize(), nil
}

func encodeDomainUpdate(cmd Command, reg *Registry, clTRID string) ([]byte, error) {
	p, err := payload[DomainUpdate](cmd)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, errors.New(errors.CodeConfiguration, "domain update requires a name")
	}
	attrs, err := nsAttrs(reg, "domain")
	if err != nil {
		return nil, err
	}
	update := El("domain:update", TextEl("domain:name", p.Name)).SetAttrs(attrs)

	var ext *Node
	switch p.Change {
	case ChangeRegistrant:
		update.Append(El("domain:chg",
			TextEl("domain:registrant", p.Registrant),
			El("domain:authInfo", TextEl("domain:pw", p.AuthInfo)),
		))
	case ChangeAdmin:
		update.Append(El("domain:chg",
			TextEl("domain:contact", p.Admin).SetAttr("type", "admin"),
		))
	case ChangeStatus:
		if len(p.AddStatus) == 0 && len(p.RemStatus) == 0 {
			return nil, errors.New(errors.CodeConfiguration, "domain status update requires a status to add or remove")
		}
		if len(p.AddStatus) > 0 {
			add := El("domain:add")
			for _, s := range p.AddStatus {
				add.Append(El("domain:status").SetAttr("s", s))
			}
			update.Append(add)
		}
		if len(p.RemStatus) > 0 {
			rem := El("domain:rem")
			for _, s := range p.RemStatus {
				rem.Append(El("domain:status").SetAttr("s", s))
			}
			update.Append(rem)
		}
	case ChangeHosts:
		added, removed := diffHosts(p.NS, p.PrevNS)
		if len(added) > 0 {
			ns := El("domain:ns")
			for _, h := range added {
				ns.Append(hostAttr(h))
			}
			update.Append(El("domain:add", ns))
		}
		if len(removed) > 0 {
			ns := El("domain:ns")
			for _, h := range removed {
				ns.Append(hostAttr(h))
			}
			update.Append(El("domain:rem", ns))
		}
		if reg.DNSSEC() && (len(p.DS) > 0 || p.PrevDS.All || len(p.PrevDS.Records) > 0) {
			ext, err = secDNSUpdate(reg, p)
			if err != nil {
				return nil, err
			}
		}
	default:
		update.Append(El("domain:chg",
			El("domain:authInfo", TextEl("domain:pw", p.AuthInfo)),
		))
	}
	return commandEnvelope(reg, El("update", update), ext, clTRID).Serialize(), nil
}

// secDNSUpdate emits the remove-then-add form: either dropping everything
// previously published or the itemized previous records, then adding the
// current set.
func secDNSUpdate(reg *Registry, p DomainUpdate) (*Node, error) {
	attrs, err := nsAttrs(reg, "secDNS")
	if err != nil {
		return nil, err
	}
	ext := El("secDNS:update").SetAttrs(attrs)
	if p.PrevDS.All {
		ext.Append(El("secDNS:rem", TextEl("secDNS:all", "true")))
	} else if len(p.PrevDS.Records) > 0 {
		rem := El("secDNS:rem")
		for _, ds := range p.PrevDS.Records {
			rem.Append(dsData(ds))
		}
		ext.Append(rem)
	}
	if len(p.DS) > 0 {
		add := El("secDNS:add")
		for _, ds := range p.DS {
			add.Append(dsData(ds))
		}
		ext.Append(add)
	}
	return ext, nil
}

func encodeDomainDelete(cmd Command, reg *Registry, clTRID string) ([]byte, error) {
	p, err := payload[DomainDelete](cmd)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, errors.New(errors.CodeConfiguration, "domain delete requires a name")
	}
	attrs, err := nsAttrs(reg, "domain")
	if err != nil {
		return nil, err
	}
	op := El("delete",
		El("domain:delete", TextEl("domain:name", p.Name)).SetAttrs(attrs),
	)
	return commandEnvelope(reg, op, nil, clTRID).Serialize(), nil
}

func encodeDomainTransfer(cmd Command, reg *Registry, clTRID string) ([]byte, error) {
	p, err := payload[DomainTransfer](cmd)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, errors.New(errors.CodeConfiguration, "domain transfer requires a name")
	}
	motive := strings.ToLower(p.Op)
	switch motive {
	case TransferRequest, TransferApprove, TransferReject, TransferCancel, TransferQuery:
	default:
		return nil, errors.Newf(errors.CodeConfiguration, "unknown transfer motive %q", p.Op)
	}
	attrs, err := nsAttrs(reg, "domain")
	if err != nil {
		return nil, err
	}

	// The auth code proves control of the domain: on a request it is the
	// losing registrar's code, on every other motive the caller's own.
	authInfo := p.AuthInfo
	if motive == TransferRequest && p.OldAuthInfo != "" {
		authInfo = p.OldAuthInfo
	}
	transfer := El("domain:transfer",
		TextEl("domain:name", p.Name),
		El("domain:authInfo", TextEl("domain:pw", authInfo)),
	).SetAttrs(attrs)

	var ext *Node
	if motive == TransferRequest {
		extAttrs, err := nsAttrs(reg, "extdom")
		if err != nil {
			return nil, err
		}
		ext = El("extdom:trade",
			El("extdom:transferTrade",
				TextEl("extdom:newRegistrant", p.NewRegistrant),
				El("extdom:newAuthInfo", TextEl("extdom:pw", p.AuthInfo)),
			),
		).SetAttrs(extAttrs)
	}
	op := El("transfer", transfer).SetAttr("op", motive)
	return commandEnvelope(reg, op, ext, clTRID).Serialize(), nil
}

func encodeDomainRestore(cmd Command, reg *Registry, clTRID string) ([]byte, error) {
	p, err := payload[DomainRestore](cmd)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, errors.New(errors.CodeConfiguration, "domain restore requires a name")
	}
	attrs, err := nsAttrs(reg, "domain")
	if err != nil {
		return nil, err
	}
	rgpAttrs, err := nsAttrs(reg, "rgp")
	if err != nil {
		return nil, err
	}

	// Restore rides on an empty update carrying the grace-period extension.
	update := El("domain:update",
		TextEl("domain:name", p.Name),
		El("domain:chg"),
	).SetAttrs(attrs)
	ext := El("rgp:update",
		El("rgp:restore").SetAttr("op", "request"),
	).SetAttrs(rgpAttrs)
	return commandEnvelope(reg, El("update", update), ext, clTRID).Serialize(), nil
}

func hostAttr(h Host) *Node {
	n := El("domain:hostAttr", TextEl("domain:hostName", h.Name))
	if h.Addr != "" && h.AddrType != "" {
		n.Append(TextEl("domain:hostAddr", h.Addr).SetAttr("type", h.AddrType))
	}
	return n
}

func dsData(ds DSRecord) *Node {
	return El("secDNS:dsData",
		TextEl("secDNS:keyTag", strconv.Itoa(ds.KeyTag)),
		TextEl("secDNS:alg", strconv.Itoa(ds.Alg)),
		TextEl("secDNS:digestType", strconv.Itoa(ds.DigestType)),
		TextEl("secDNS:digest", ds.Digest),
	)
}

// diffHosts returns the hosts present only in next and only in prev,
// matched by host name, preserving input order.
func diffHosts(next, prev []Host) (added, removed []Host) {
	prevNames := make(map[string]struct{}, len(prev))
	for _, h := range prev {
		prevNames[h.Name] = struct{}{}
	}
	nextNames := make(map[string]struct{}, len(next))
	for _, h := range next {
		nextNames[h.Name] = struct{}{}
	}
	for _, h := range next {
		if _, ok := prevNames[h.Name]; !ok {
			added = append(added, h)
		}
	}
	for _, h := range prev {
		if _, ok := nextNames[h.Name]; !ok {
			removed = append(removed, h)
		}
	}
	return added, removed
}
