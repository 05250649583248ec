package app

import (
	"bufio"
	"context"
	"io"
	"log"
	"strconv"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/sailing_computer/internal/bus"
	"github.com/relabs-tech/sailing_computer/internal/config"
	"github.com/relabs-tech/sailing_computer/internal/control"
	"github.com/relabs-tech/sailing_computer/internal/gps"
)

// RunGPSProducer opens the GPS serial port, parses NMEA sentences, and
// publishes combined GPS fixes as JSON on the raw GPS topic.
func RunGPSProducer(ctx context.Context) error {
	cfg := config.Get()

	// ---- 1) Connect to MQTT broker ----
	client, err := bus.Connect(cfg.MQTTBroker, cfg.MQTTClientIDGPS)
	if err != nil {
		return err
	}
	defer client.Close()

	// ---- 2) Open GPS serial port ----
	serialOpts := serial.OpenOptions{
		PortName:              cfg.GPSSerialPort,
		BaudRate:              uint(cfg.GPSBaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return err
	}
	log.Printf("GPS serial port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)

	go func() {
		<-ctx.Done()
		port.Close()
	}()

	err = readGPS(port, client, cfg.TopicGPSRaw)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// readGPS publishes one fix per RMC or GGA sentence. VTG and GSA only
// refine the fix being built.
func readGPS(r io.Reader, pub control.Publisher, topic string) error {
	reader := bufio.NewReader(r)
	var current gps.Fix

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			log.Printf("GPS read error: %v", err)
			return err
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			// noisy GPS or partial sentences
			continue
		}

		if !applySentence(&current, sentence) {
			continue
		}
		if err := pub.Publish(topic, current); err != nil {
			log.Printf("GPS publish error: %v", err)
			continue
		}
	}
}

// applySentence folds s into f and reports whether f should be published.
func applySentence(f *gps.Fix, s nmea.Sentence) bool {
	switch s.DataType() {
	case nmea.TypeRMC:
		m := s.(nmea.RMC)
		f.Time = m.Time.String()
		f.Date = m.Date.String()
		f.Validity = m.Validity
		f.SpeedKnots = m.Speed
		f.CourseDeg = m.Course
		f.HaveVelocity = m.Validity == nmea.ValidRMC
		if m.Validity == nmea.ValidRMC {
			f.Latitude = m.Latitude
			f.Longitude = m.Longitude
			f.HavePosition = true
		}
		return true

	case nmea.TypeGGA:
		m := s.(nmea.GGA)
		q, err := strconv.Atoi(m.FixQuality)
		if err != nil {
			q = 0
		}
		f.Time = m.Time.String()
		f.Quality = q
		f.Satellites = int(m.NumSatellites)
		f.HDOP = m.HDOP
		if q > 0 {
			f.Latitude = m.Latitude
			f.Longitude = m.Longitude
			f.Altitude = m.Altitude
			f.HavePosition = true
		}
		return true

	case nmea.TypeVTG:
		m := s.(nmea.VTG)
		f.CourseDeg = m.TrueTrack
		f.SpeedKnots = m.GroundSpeedKnots
		f.HaveVelocity = true

	case nmea.TypeGSA:
		m := s.(nmea.GSA)
		t, err := strconv.Atoi(m.FixType)
		if err != nil || t < 1 || t > 3 {
			t = 1
		}
		f.FixType = t
	}
	return false
}
