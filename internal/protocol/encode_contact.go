package protocol

import (
	"strconv"

	"eppclient/pkg/errors"
)

func encodeContact(cmd Command, reg *Registry, clTRID string) ([]byte, error) {
	switch cmd.Op {
	case OpCheck:
		return encodeContactCheck(cmd, reg, clTRID)
	case OpCreate:
		return encodeContactCreate(cmd, reg, clTRID)
	case OpInfo:
		return encodeContactInfo(cmd, reg, clTRID)
	case OpUpdate:
		return encodeContactUpdate(cmd, reg, clTRID)
	case OpDelete:
		return encodeContactDelete(cmd, reg, clTRID)
	}
	return nil, errors.Newf(errors.CodeConfiguration, "contact objects do not support %s", cmd.Op)
}

func encodeContactCheck(cmd Command, reg *Registry, clTRID string) ([]byte, error) {
	p, err := payload[ContactCheck](cmd)
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, errors.New(errors.CodeConfiguration, "contact check requires a handle")
	}
	attrs, err := nsAttrs(reg, "contact")
	if err != nil {
		return nil, err
	}
	op := El("check",
		El("contact:check", TextEl("contact:id", p.ID)).SetAttrs(attrs),
	)
	return commandEnvelope(reg, op, nil, clTRID).Serialize(), nil
}

func encodeContactCreate(cmd Command, reg *Registry, clTRID string) ([]byte, error) {
	p, err := payload[ContactCreate](cmd)
	if err != nil {
		return nil, err
	}
	c := p.Contact
	if c.ID == "" || c.Name == "" || c.Email == "" {
		return nil, errors.New(errors.CodeConfiguration, "contact create requires handle, name and email")
	}
	attrs, err := nsAttrs(reg, "contact")
	if err != nil {
		return nil, err
	}

	addr := El("contact:addr")
	for _, street := range c.Street {
		if street != "" {
			addr.Append(TextEl("contact:street", street))
		}
	}
	addr.Append(
		TextEl("contact:city", c.City),
		TextEl("contact:sp", c.Province),
		TextEl("contact:pc", c.PostalCode),
		TextEl("contact:cc", c.CountryCode),
	)

	postal := El("contact:postalInfo", TextEl("contact:name", c.Name)).SetAttr("type", "loc")
	if c.Org != "" {
		postal.Append(TextEl("contact:org", c.Org))
	}
	postal.Append(addr)

	create := El("contact:create", TextEl("contact:id", c.ID), postal).SetAttrs(attrs)
	if c.Voice != "" {
		voice := TextEl("contact:voice", c.Voice)
		if c.VoiceExt != "" {
			voice.SetAttr("x", c.VoiceExt)
		}
		create.Append(voice)
	}
	if c.Fax != "" {
		create.Append(TextEl("contact:fax", c.Fax))
	}
	create.Append(
		TextEl("contact:email", c.Email),
		El("contact:authInfo", TextEl("contact:pw", c.AuthInfo)),
	)

	ext, err := contactCreateExtension(reg, c)
	if err != nil {
		return nil, err
	}
	return commandEnvelope(reg, El("create", create), ext, clTRID).Serialize(), nil
}

// contactCreateExtension carries the consent flag on every create, plus the
// registrant block when the contact registers domains itself.
func contactCreateExtension(reg *Registry, c Contact) (*Node, error) {
	attrs, err := nsAttrs(reg, "extcon")
	if err != nil {
		return nil, err
	}
	ext := El("extcon:create",
		TextEl("extcon:consentForPublishing", boolWord(c.ConsentForPublishing)),
	).SetAttrs(attrs)
	if c.EntityType != 0 {
		reg := El("extcon:registrant",
			TextEl("extcon:nationalityCode", c.NationalityCode),
			TextEl("extcon:entityType", strconv.Itoa(c.EntityType)),
			TextEl("extcon:regCode", c.RegCode),
		)
		if c.SchoolCode != "" {
			reg.Append(TextEl("extcon:schoolCode", c.SchoolCode))
		}
		ext.Append(reg)
	}
	return ext, nil
}

func encodeContactInfo(cmd Command, reg *Registry, clTRID string) ([]byte, error) {
	p, err := payload[ContactInfo](cmd)
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, errors.New(errors.CodeConfiguration, "contact info requires a handle")
	}
	attrs, err := nsAttrs(reg, "contact")
	if err != nil {
		return nil, err
	}
	op := El("info",
		El("contact:info", TextEl("contact:id", p.ID)).SetAttrs(attrs),
	)
	return commandEnvelope(reg, op, nil, clTRID).Serialize(), nil
}

func encodeContactUpdate(cmd Command, reg *Registry, clTRID string) ([]byte, error) {
	p, err := payload[ContactUpdate](cmd)
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, errors.New(errors.CodeConfiguration, "contact update requires a handle")
	}
	attrs, err := nsAttrs(reg, "contact")
	if err != nil {
		return nil, err
	}

	update := El("contact:update", TextEl("contact:id", p.ID)).SetAttrs(attrs)
	if len(p.AddStatus) > 0 {
		add := El("contact:add")
		for _, s := range p.AddStatus {
			add.Append(El("contact:status").SetAttr("s", s))
		}
		update.Append(add)
	}
	if len(p.RemStatus) > 0 {
		rem := El("contact:rem")
		for _, s := range p.RemStatus {
			rem.Append(El("contact:status").SetAttr("s", s))
		}
		update.Append(rem)
	}
	if p.Voice != "" || p.Email != "" {
		chg := El("contact:chg")
		if p.Voice != "" {
			chg.Append(TextEl("contact:voice", p.Voice))
		}
		if p.Email != "" {
			chg.Append(TextEl("contact:email", p.Email))
		}
		update.Append(chg)
	}

	var ext *Node
	if p.ConsentForPublishing != nil {
		extAttrs, err := nsAttrs(reg, "extcon")
		if err != nil {
			return nil, err
		}
		ext = El("extcon:update",
			TextEl("extcon:consentForPublishing", boolWord(*p.ConsentForPublishing)),
		).SetAttrs(extAttrs)
	}
	return commandEnvelope(reg, El("update", update), ext, clTRID).Serialize(), nil
}

func encodeContactDelete(cmd Command, reg *Registry, clTRID string) ([]byte, error) {
	p, err := payload[ContactDelete](cmd)
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, errors.New(errors.CodeConfiguration, "contact delete requires a handle")
	}
	attrs, err := nsAttrs(reg, "contact")
	if err != nil {
		return nil, err
	}
	op := El("delete",
		El("contact:delete", TextEl("contact:id", p.ID)).SetAttrs(attrs),
	)
	return commandEnvelope(reg, op, nil, clTRID).Serialize(), nil
}

func boolWord(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
