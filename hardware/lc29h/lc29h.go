// Package lc29h configures a Quectel LC29H GNSS RTK module as a fixed-
// position base station: one ASCII PAIR-command sequence sent once over
// the serial port before the data-plane reader takes over.
package lc29h

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/sirupsen/logrus"
)

// DefaultBaudRate matches the LC29H's default UART speed.
const DefaultBaudRate = 115200

// commandDelay is the pause between successive PAIR commands; the
// module needs a moment to apply each setting before the next arrives.
const commandDelay = 100 * time.Millisecond

// BaseMessages are the RTCM3 message types a base station conventionally
// streams: station coordinates (1005), MSM4 observables for each
// constellation (1074/1084/1094/1124), and the GLONASS bias message
// (1230).
var BaseMessages = []int{1005, 1074, 1084, 1094, 1124, 1230}

// Port is the minimal serial surface a Device needs to send commands.
// go.bug.st/serial.Port satisfies this directly.
type Port interface {
	Write([]byte) (int, error)
	Close() error
}

// Device configures an LC29H over an already-open Port.
type Device struct {
	port   Port
	logger logrus.FieldLogger
}

// Open opens portName at baudRate (DefaultBaudRate if <= 0) and returns
// a Device ready to configure it.
func Open(portName string, baudRate int, logger logrus.FieldLogger) (*Device, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}

	p, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("lc29h: open %s: %w", portName, err)
	}

	logger.WithFields(logrus.Fields{"port": portName, "baud": baudRate}).Info("opened LC29H serial port")
	return &Device{port: p, logger: logger}, nil
}

// NewDevice wraps an already-open Port, for tests and for callers that
// manage the serial connection themselves.
func NewDevice(port Port, logger logrus.FieldLogger) *Device {
	return &Device{port: port, logger: logger}
}

// Close closes the underlying port.
func (d *Device) Close() error {
	return d.port.Close()
}

// ConfigureBaseMode puts the module into fixed-position base mode at
// the given WGS84 coordinates and enables RTCM3 output for the given
// message types (BaseMessages if messages is empty). It is a one-shot
// configuration sequence; callers run it once after Open and before
// handing the port to a serial reader.
func (d *Device) ConfigureBaseMode(lat, lon, alt float64, messages []int) error {
	if err := d.setBaseStationMode(); err != nil {
		return err
	}
	if err := d.setFixedPosition(lat, lon, alt); err != nil {
		return err
	}
	if len(messages) == 0 {
		messages = BaseMessages
	}
	return d.EnableRTCMOutput(messages)
}

// setBaseStationMode sends PAIR065, switching the module into base
// station mode.
func (d *Device) setBaseStationMode() error {
	if err := d.sendPAIR("PAIR065,0,1"); err != nil {
		return fmt.Errorf("lc29h: set base station mode: %w", err)
	}
	d.logger.Info("LC29H switched to base station mode")
	return nil
}

// setFixedPosition sends PAIR062, fixing the base's broadcast position.
func (d *Device) setFixedPosition(lat, lon, alt float64) error {
	body := fmt.Sprintf("PAIR062,%.9f,%.9f,%.4f", lat, lon, alt)
	if err := d.sendPAIR(body); err != nil {
		return fmt.Errorf("lc29h: set fixed position: %w", err)
	}
	d.logger.WithFields(logrus.Fields{"lat": lat, "lon": lon, "alt": alt}).Info("LC29H fixed position configured")
	return nil
}

// EnableRTCMOutput sends one PAIR050 command per message type,
// enabling RTCM3 output for each.
func (d *Device) EnableRTCMOutput(messages []int) error {
	for _, msgType := range messages {
		body := fmt.Sprintf("PAIR050,%d,1", msgType)
		if err := d.sendPAIR(body); err != nil {
			return fmt.Errorf("lc29h: enable RTCM message %d: %w", msgType, err)
		}
		time.Sleep(commandDelay)
	}
	d.logger.WithField("messages", messages).Info("LC29H RTCM output enabled")
	return nil
}

// sendPAIR wraps body ("PAIRxxx,...", no leading $ or trailing
// checksum) in the NMEA sentence framing PAIR commands use and writes
// it to the port.
func (d *Device) sendPAIR(body string) error {
	sentence := fmt.Sprintf("$%s*%s\r\n", body, nmeaChecksum(body))
	d.logger.WithField("command", strings.TrimSpace(sentence)).Debug("sending PAIR command")

	if _, err := d.port.Write([]byte(sentence)); err != nil {
		return err
	}
	time.Sleep(commandDelay)
	return nil
}

// nmeaChecksum computes the two-digit uppercase hex NMEA checksum: the
// XOR of every byte between the $ and the * (neither included).
func nmeaChecksum(body string) string {
	var checksum byte
	for i := 0; i < len(body); i++ {
		checksum ^= body[i]
	}
	return fmt.Sprintf("%02X", checksum)
}
