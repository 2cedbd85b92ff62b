// Package ephem materializes the NASA OEM (Orbit Ephemeris Message) feed
// into an ordered sequence of state vectors.
//
// The feed is the CCSDS OEM XML document published for the ISS:
// ndm → oem → body → segment → data → stateVector*. Each stateVector carries
// an EPOCH in day-of-year form plus J2000 position (km) and velocity (km/s).
package ephem

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// The OEM document, pared down to the elements this service reads.

type oemDocument struct {
	XMLName xml.Name   `xml:"ndm"`
	Segment oemSegment `xml:"oem>body>segment"`
}

type oemSegment struct {
	Data oemData `xml:"data"`
}

type oemData struct {
	Comments     []string         `xml:"COMMENT"`
	StateVectors []oemStateVector `xml:"stateVector"`
}

type oemStateVector struct {
	Epoch string   `xml:"EPOCH"`
	X     oemValue `xml:"X"`
	Y     oemValue `xml:"Y"`
	Z     oemValue `xml:"Z"`
	XDot  oemValue `xml:"X_DOT"`
	YDot  oemValue `xml:"Y_DOT"`
	ZDot  oemValue `xml:"Z_DOT"`
}

// oemValue is a numeric element with a units attribute, e.g.
// <X units="km">-4945.23</X>.
type oemValue struct {
	Units string `xml:"units,attr"`
	Text  string `xml:",chardata"`
}

// float parses the element text. Returns NaN when the text is empty or not a
// number; callers decide whether NaN is skippable or fatal.
func (v oemValue) float() float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// Parse decodes an OEM XML document into a Dataset. Records without an epoch
// are skipped with a warning; records with unparseable numeric components are
// kept with NaN in the affected component so the query layer can apply its
// own skip rules.
func Parse(raw []byte, logger *slog.Logger) (*Dataset, error) {
	var doc oemDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding OEM document: %w", err)
	}

	data := doc.Segment.Data
	vectors := make([]StateVector, 0, len(data.StateVectors))
	var skipped, degraded int

	for i, sv := range data.StateVectors {
		epoch := strings.TrimSpace(sv.Epoch)
		if epoch == "" {
			logger.Warn("skipping state vector without epoch", "index", i)
			skipped++
			continue
		}

		rec := StateVector{
			Epoch: epoch,
			X:     sv.X.float(),
			Y:     sv.Y.float(),
			Z:     sv.Z.float(),
			XDot:  sv.XDot.float(),
			YDot:  sv.YDot.float(),
			ZDot:  sv.ZDot.float(),
		}
		if hasNaN(rec) {
			logger.Warn("state vector has unparseable components", "index", i, "epoch", epoch)
			degraded++
		}
		vectors = append(vectors, rec)
	}

	if skipped > 0 || degraded > 0 {
		logger.Info("OEM parse finished with defects",
			"vectors", len(vectors),
			"skipped", skipped,
			"degraded", degraded,
		)
	}

	comments := make([]string, 0, len(data.Comments))
	for _, c := range data.Comments {
		comments = append(comments, strings.TrimSpace(c))
	}

	return &Dataset{
		Comments: comments,
		Vectors:  vectors,
	}, nil
}

func hasNaN(sv StateVector) bool {
	return math.IsNaN(sv.X) || math.IsNaN(sv.Y) || math.IsNaN(sv.Z) ||
		math.IsNaN(sv.XDot) || math.IsNaN(sv.YDot) || math.IsNaN(sv.ZDot)
}
