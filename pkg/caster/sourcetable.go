package caster

import (
	"fmt"
	"strings"
)

// CasterInfo identifies this caster for the CAS line of the
// source-table; Host/Port/Name/Identifier/Country are configuration
// owned, not contract (see the "CAS line hardcodes 0 carrier and USA"
// design note).
type CasterInfo struct {
	Host       string
	Port       int
	Product    string
	Name       string
	Identifier string
	Country    string
}

// FormatSourcetable renders the GET / response body: one CAS line, one
// STR line per mountpoint, terminated by ENDSOURCETABLE. Every line uses
// \r\n regardless of what line endings arrived on the request.
func FormatSourcetable(info CasterInfo, mounts []Mountpoint) string {
	var b strings.Builder

	b.WriteString("SOURCETABLE 200 OK\r\n")
	fmt.Fprintf(&b, "Server: %s\r\n", info.Product)
	b.WriteString("Content-Type: text/plain\r\n")
	b.WriteString("Connection: close\r\n")
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "CAS;%s;%d;%s;%s;0;%s;0.00;0.00;http://example.com\r\n",
		info.Host, info.Port, info.Name, info.Identifier, info.Country)

	for _, m := range mounts {
		fmt.Fprintf(&b, "STR;%s;%s;%s;%s;%s;%s;%s;%s;%.2f;%.2f;%s;%s;%s;%s;%s;%s;%s\r\n",
			m.Name, m.Identifier, m.Format, m.FormatDetails, m.Carrier, m.NavSystem,
			m.Network, m.Country, m.Lat, m.Lon, m.NMEA, m.Solution, m.Generator,
			m.Compression, m.Authentication, m.Fee, m.Bitrate)
	}

	b.WriteString("ENDSOURCETABLE\r\n")
	return b.String()
}
