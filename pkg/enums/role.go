package enums

// Role is carried in admin tokens. The shop has a single back-office
// account, so admin is the only role issued.
type Role string

const RoleAdmin Role = "admin"

func (r Role) String() string { return string(r) }
