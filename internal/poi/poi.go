package poi

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"packflow/internal/catalog"
)

// LegacyDescriptorName is the deprecated marker descriptor file shipped by
// older capture tools inside the package archive.
const LegacyDescriptorName = "synchro.xml"

// Marker types understood by the partitioner.
const (
	TypeImage = "image"
	TypeTag   = "tag"
)

// ErrRichMediaMarkersMissing is returned when a package flagged as
// rich-media carries no marker source at all.
var ErrRichMediaMarkersMissing = errors.New("rich-media package has no marker descriptor")

// Markers returns the raw point-of-interest list for a package. Metadata
// indexes win when present; otherwise the legacy synchro.xml descriptor in
// the extracted directory is parsed. A missing descriptor is tolerated
// unless the metadata flags the package as rich-media.
func Markers(meta *catalog.Metadata, extractedDir string) ([]catalog.Marker, error) {
	if meta != nil && len(meta.Indexes) > 0 {
		return meta.Indexes, nil
	}

	markers, err := parseLegacyDescriptor(filepath.Join(extractedDir, LegacyDescriptorName))
	if errors.Is(err, os.ErrNotExist) {
		if meta != nil && meta.RichMedia {
			return nil, ErrRichMediaMarkersMissing
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return markers, nil
}

type legacyDescriptor struct {
	XMLName xml.Name      `xml:"synchro"`
	Images  []legacyImage `xml:"image"`
}

type legacyImage struct {
	ID       string `xml:"id,attr"`
	Timecode int64  `xml:"timecode,attr"`
}

// parseLegacyDescriptor reads the deprecated XML format. Only image
// markers exist in that format; each id attribute names the slide file.
func parseLegacyDescriptor(path string) ([]catalog.Marker, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc legacyDescriptor
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", LegacyDescriptorName, err)
	}

	markers := make([]catalog.Marker, 0, len(doc.Images))
	for _, img := range doc.Images {
		markers = append(markers, catalog.Marker{
			Type:     TypeImage,
			Timecode: img.Timecode,
			Data:     catalog.MarkerData{Filename: img.ID},
		})
	}
	return markers, nil
}

// Result carries the partitioned marker output: slide timecodes for the
// package record and tag points for the point-of-interest store.
type Result struct {
	Timecodes []catalog.Timecode
	Tags      []catalog.PointOfInterest
}

// Partition splits markers by type. Image markers become timecode entries
// whose sprite cell is resolved through the sprites map (keyed by slide
// filename); a referenced slide missing from the map fails the whole
// partition. Tag markers become point-of-interest records, with a
// sequential name synthesized when the source provides none.
func Partition(packageID int64, markers []catalog.Marker, spriteRefs map[string]catalog.SpriteRef, largeBase string) (Result, error) {
	var result Result
	tagNumber := 0

	for _, marker := range markers {
		switch marker.Type {
		case TypeImage:
			filename := marker.Data.Filename
			if filename == "" {
				return Result{}, fmt.Errorf("image marker at %dms has no filename", marker.Timecode)
			}
			ref, ok := spriteRefs[filename]
			if !ok {
				return Result{}, fmt.Errorf("image marker %s has no sprite reference", filename)
			}
			result.Timecodes = append(result.Timecodes, catalog.Timecode{
				ID:       uuid.NewString(),
				Timecode: marker.Timecode,
				Image: catalog.TimecodeImage{
					Large: path.Join(largeBase, filename),
					Small: ref,
				},
			})
		case TypeTag:
			tagNumber++
			name := marker.Data.Name
			if name == "" {
				name = fmt.Sprintf("Tag%d", tagNumber)
			}
			result.Tags = append(result.Tags, catalog.PointOfInterest{
				ID:          uuid.NewString(),
				PackageID:   packageID,
				Name:        name,
				Description: marker.Data.Description,
				Value:       marker.Timecode,
			})
		default:
			// Unknown marker types are ignored rather than fatal so a
			// newer capture tool does not break older pipelines.
			continue
		}
	}
	return result, nil
}
