package rtcm3

import "fmt"

// messageTypeNames maps well-known RTCM3 message types to a short
// human-readable description, for diagnostic logging only. The framer
// never consults this table to decide what to emit.
var messageTypeNames = map[int]string{
	1001: "GPS L1 RTK Observables",
	1002: "GPS Extended L1 RTK Observables",
	1003: "GPS L1/L2 RTK Observables",
	1004: "GPS Extended L1/L2 RTK Observables",
	1005: "Stationary RTK Reference Station ARP",
	1006: "Stationary RTK Reference Station ARP with Height",
	1007: "Antenna Descriptor",
	1008: "Antenna Descriptor & Serial Number",
	1009: "GLONASS L1 RTK Observables",
	1010: "GLONASS Extended L1 RTK Observables",
	1011: "GLONASS L1/L2 RTK Observables",
	1012: "GLONASS Extended L1/L2 RTK Observables",
	1013: "System Parameters",
	1019: "GPS Ephemeris",
	1020: "GLONASS Ephemeris",
	1033: "Receiver and Antenna Descriptors",
	1074: "GPS MSM4",
	1075: "GPS MSM5",
	1076: "GPS MSM6",
	1077: "GPS MSM7",
	1084: "GLONASS MSM4",
	1085: "GLONASS MSM5",
	1086: "GLONASS MSM6",
	1087: "GLONASS MSM7",
	1094: "Galileo MSM4",
	1095: "Galileo MSM5",
	1096: "Galileo MSM6",
	1097: "Galileo MSM7",
	1124: "BeiDou MSM4",
	1125: "BeiDou MSM5",
	1126: "BeiDou MSM6",
	1127: "BeiDou MSM7",
	1230: "GLONASS Code-Phase Biases",
}

// MessageTypeName returns a short description of an RTCM3 message type,
// or "Unknown Type N" if it isn't one of the well-known types above.
func MessageTypeName(msgType int) string {
	if name, ok := messageTypeNames[msgType]; ok {
		return name
	}
	return fmt.Sprintf("Unknown Type %d", msgType)
}
