package protocol

// Op names a protocol operation. The pair (ObjectKind, Op) selects the
// request shape; the payload carries the operation's data.
type Op string

const (
	OpHello          Op = "hello"
	OpLogin          Op = "login"
	OpLogout         Op = "logout"
	OpPoll           Op = "poll"
	OpChangePassword Op = "changePassword"
	OpCheck          Op = "check"
	OpCreate         Op = "create"
	OpInfo           Op = "info"
	OpUpdate         Op = "update"
	OpDelete         Op = "delete"
	OpTransfer       Op = "transfer"
	OpRestore        Op = "restore"
)

// Command is a single request to encode. Commands are built by the caller
// and consumed once; they never outlive the request they produce.
type Command struct {
	Kind    ObjectKind
	Op      Op
	Payload any
}

// Login authenticates the session. NewPassword, when set, asks the server
// to rotate the account password in the same exchange.
type Login struct {
	ClientID    string
	Password    string
	NewPassword string
}

// Poll drives the server message queue. Op is "req" to read the oldest
// queued message or "ack" to dequeue the one identified by MsgID.
type Poll struct {
	Op    string
	MsgID string
}

// Contact carries the full field set of a registry contact.
type Contact struct {
	ID                   string
	Name                 string
	Org                  string
	Street               []string
	City                 string
	Province             string
	PostalCode           string
	CountryCode          string
	Voice                string
	VoiceExt             string
	Fax                  string
	Email                string
	AuthInfo             string
	ConsentForPublishing bool

	// Registrant extension; emitted only when EntityType is non-zero.
	NationalityCode string
	EntityType      int
	RegCode         string
	SchoolCode      string
}

// ContactCheck asks whether a handle is available.
type ContactCheck struct {
	ID string
}

// ContactCreate provisions a new contact.
type ContactCreate struct {
	Contact Contact
}

// ContactInfo fetches a contact by handle.
type ContactInfo struct {
	ID string
}

// ContactDelete removes a contact by handle.
type ContactDelete struct {
	ID string
}

// ContactUpdate applies status and field changes to a contact. A nil
// ConsentForPublishing leaves the consent flag untouched.
type ContactUpdate struct {
	ID                   string
	AddStatus            []string
	RemStatus            []string
	Voice                string
	Email                string
	ConsentForPublishing *bool
}

// Host is one delegated nameserver. Addr and AddrType (v4/v6) are only
// needed for glue records inside the delegated zone.
type Host struct {
	Name     string
	Addr     string
	AddrType string
}

// DSRecord is one DNSSEC delegation-signer record.
type DSRecord struct {
	KeyTag     int
	Alg        int
	DigestType int
	Digest     string
}

// DSState describes the DS records previously published for a domain:
// either "everything" or an itemized list.
type DSState struct {
	All     bool
	Records []DSRecord
}

// DomainCheck asks whether one or more names are available.
type DomainCheck struct {
	Names []string
}

// DomainCreate provisions a new domain.
type DomainCreate struct {
	Name       string
	Period     int
	NS         []Host
	Registrant string
	Admin      string
	Tech       []string
	AuthInfo   string
	DS         []DSRecord
}

// DomainInfo fetches a domain. InfContacts, when set to all, registrant,
// admin or tech, requests the full contact details at that scope.
type DomainInfo struct {
	Name        string
	AuthInfo    string
	InfContacts string
}

// DomainDelete removes a domain by name.
type DomainDelete struct {
	Name string
}

// DomainRestore rescues a domain from the redemption grace period.
type DomainRestore struct {
	Name string
}

// DomainChange discriminates which block a domain update emits.
type DomainChange string

const (
	ChangeAuthInfo   DomainChange = ""
	ChangeRegistrant DomainChange = "registrant"
	ChangeAdmin      DomainChange = "admin"
	ChangeHosts      DomainChange = "ns"
	ChangeStatus     DomainChange = "status"
)

// DomainUpdate applies one change block to a domain. For ChangeHosts the
// add and remove sets are computed by diffing NS against PrevNS, and the
// DNSSEC extension compares DS against PrevDS.
type DomainUpdate struct {
	Name       string
	Change     DomainChange
	AuthInfo   string
	Registrant string
	Admin      string
	NS         []Host
	PrevNS     []Host
	DS         []DSRecord
	PrevDS     DSState
	AddStatus  []string
	RemStatus  []string
}

// Transfer motives.
const (
	TransferRequest = "request"
	TransferApprove = "approve"
	TransferReject  = "reject"
	TransferCancel  = "cancel"
	TransferQuery   = "query"
)

// DomainTransfer moves a domain between registrars. A request motive
// additionally carries the trade block with the incoming registrant and
// the auth code the domain will have afterwards.
type DomainTransfer struct {
	Name          string
	Op            string
	AuthInfo      string
	OldAuthInfo   string
	NewRegistrant string
}
