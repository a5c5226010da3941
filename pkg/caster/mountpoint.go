package caster

// Mountpoint is a named stream endpoint, registered once at startup and
// immutable thereafter. Its fields double as admission metadata and as
// the source material for one STR line in the source-table.
type Mountpoint struct {
	Name           string
	Identifier     string
	Format         string
	FormatDetails  string
	Carrier        string
	NavSystem      string
	Network        string
	Country        string
	Lat            float64
	Lon            float64
	NMEA           string
	Solution       string
	Generator      string
	Compression    string
	Authentication string
	Fee            string
	Bitrate        string
}

// DefaultMountpoint fills in the conventional defaults original_source
// used for every registered stream. Name and Identifier are both set to
// name; Lat, Lon and Authentication are left zero for the caller to set.
func DefaultMountpoint(name string) Mountpoint {
	return Mountpoint{
		Name:          name,
		Identifier:    name,
		Format:        "RTCM 3.3",
		FormatDetails: "1005(10),1074(1),1084(1),1094(1),1124(1),1230(10)",
		Carrier:       "2",
		NavSystem:     "GPS+GLO+GAL+BDS",
		Network:       "FKA",
		Country:       "USA",
		NMEA:          "1",
		Solution:      "0",
		Generator:     "LC29H",
		Compression:   "none",
		Fee:           "N",
		Bitrate:       "9600",
	}
}

// Credentials is a username/password table populated once at startup. A
// nil or empty table disables authentication for every mountpoint.
type Credentials map[string]string

// Required reports whether authentication is in effect.
func (c Credentials) Required() bool {
	return len(c) > 0
}

// Verify reports whether username/password matches an entry in the
// table. Always false when authentication is not required, since
// callers must check Required separately before deciding to admit.
func (c Credentials) Verify(username, password string) bool {
	want, ok := c[username]
	return ok && want == password
}
