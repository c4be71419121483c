package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/yaml.v2"

	"github.com/cleanpath/cleanpath-api/databases"
	"github.com/cleanpath/cleanpath-api/models"
)

// WMAResolver finds the authority responsible for an area. A nil id with a
// nil error means no authority could be determined.
type WMAResolver interface {
	Resolve(ctx context.Context, area *models.Area) (*primitive.ObjectID, error)
}

// NameMatchResolver matches the area name, case-insensitively, inside the
// authority name and then inside its address. The first match wins.
type NameMatchResolver struct {
	WMAs databases.WMADatabase
}

// Resolve implements WMAResolver
func (r *NameMatchResolver) Resolve(ctx context.Context, area *models.Area) (*primitive.ObjectID, error) {
	if area == nil || strings.TrimSpace(area.Name) == "" {
		return nil, nil
	}
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(area.Name), Options: "i"}
	for _, field := range []string{"wmaname", "address"} {
		wma, err := r.WMAs.FindOne(ctx, bson.M{field: pattern})
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return nil, err
		}
		id := wma.ID
		return &id, nil
	}
	return nil, nil
}

// MappingResolver looks areas up in an explicit table keyed by area id or,
// failing that, by area name.
type MappingResolver struct {
	byKey map[string]primitive.ObjectID
}

type areaMappingFile struct {
	Areas []struct {
		Area string `yaml:"area"`
		WMA  string `yaml:"wma"`
	} `yaml:"areas"`
}

// NewMappingResolver parses a YAML mapping of the form
//
//	areas:
//	  - area: 65f0c0ffee0000000000a001
//	    wma: 65f0c0ffee0000000000b001
//	  - area: Colombo North
//	    wma: 65f0c0ffee0000000000b002
func NewMappingResolver(data []byte) (*MappingResolver, error) {
	var file areaMappingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse area mapping: %w", err)
	}
	m := &MappingResolver{byKey: make(map[string]primitive.ObjectID, len(file.Areas))}
	for i, entry := range file.Areas {
		if entry.Area == "" {
			return nil, fmt.Errorf("area mapping entry %d has no area", i)
		}
		wma, err := primitive.ObjectIDFromHex(entry.WMA)
		if err != nil {
			return nil, fmt.Errorf("area mapping entry %d has an invalid wma id %q", i, entry.WMA)
		}
		m.byKey[strings.ToLower(strings.TrimSpace(entry.Area))] = wma
	}
	return m, nil
}

// LoadMappingResolver reads a mapping file from disk
func LoadMappingResolver(path string) (*MappingResolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read area mapping: %w", err)
	}
	return NewMappingResolver(data)
}

// Resolve implements WMAResolver
func (r *MappingResolver) Resolve(_ context.Context, area *models.Area) (*primitive.ObjectID, error) {
	if area == nil {
		return nil, nil
	}
	for _, key := range []string{area.ID.Hex(), strings.ToLower(strings.TrimSpace(area.Name))} {
		if id, ok := r.byKey[key]; ok {
			return &id, nil
		}
	}
	return nil, nil
}

// ChainResolver asks each resolver in turn. A failing resolver is skipped
// and its error is only returned when no later resolver finds a match.
type ChainResolver []WMAResolver

// Resolve implements WMAResolver
func (c ChainResolver) Resolve(ctx context.Context, area *models.Area) (*primitive.ObjectID, error) {
	var firstErr error
	for _, r := range c {
		id, err := r.Resolve(ctx, area)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if id != nil {
			return id, nil
		}
	}
	return nil, firstErr
}
