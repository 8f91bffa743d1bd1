// internal/sample/library.go
package sample

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
)

// KitInfo names a discovered kit and its variants, in the order they were
// found on disk.
type KitInfo struct {
	Name     string
	Variants []string
}

// Library indexes the kits and variants found under a samples directory.
// Each kit is a subdirectory; each variant is a subdirectory of a kit.
// A variant is only kept if at least one configured sample name matches a
// file inside it (partial coverage is fine; zero coverage is skipped).
type Library struct {
	Root        string
	SampleNames []string
	Gains       []float32
	Kits        []KitInfo
}

// DiscoverKits walks root/<kit>/<variant>/ and builds a Library.
// Kits and variants are returned in alphabetical order. A kit with no
// variants that match any sample name is omitted entirely.
func DiscoverKits(root string, sampleNames []string, gains []float32) (*Library, error) {
	kitEntries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("sample: read samples dir %s: %w", root, err)
	}

	var kitNames []string
	for _, e := range kitEntries {
		if e.IsDir() {
			kitNames = append(kitNames, e.Name())
		}
	}
	sort.Strings(kitNames)

	lib := &Library{Root: root, SampleNames: sampleNames, Gains: gains}

	for _, kitName := range kitNames {
		kitPath := filepath.Join(root, kitName)
		variantEntries, err := os.ReadDir(kitPath)
		if err != nil {
			return nil, fmt.Errorf("sample: read kit dir %s: %w", kitPath, err)
		}

		var variantNames []string
		for _, e := range variantEntries {
			if e.IsDir() {
				variantNames = append(variantNames, e.Name())
			}
		}
		sort.Strings(variantNames)

		var kept []string
		for _, variantName := range variantNames {
			if variantHasAnySample(filepath.Join(kitPath, variantName), sampleNames) {
				kept = append(kept, variantName)
			}
		}

		if len(kept) == 0 {
			continue
		}
		lib.Kits = append(lib.Kits, KitInfo{Name: kitName, Variants: kept})
	}

	return lib, nil
}

func variantHasAnySample(variantPath string, sampleNames []string) bool {
	for _, name := range sampleNames {
		if _, err := os.Stat(filepath.Join(variantPath, name)); err == nil {
			return true
		}
	}
	return false
}

// KitCount returns the number of discovered kits.
func (l *Library) KitCount() int {
	return len(l.Kits)
}

// VariantCount returns the number of variants for kit index i.
func (l *Library) VariantCount(kit int) int {
	if kit < 0 || kit >= len(l.Kits) {
		return 0
	}
	return len(l.Kits[kit].Variants)
}

// VariantPath returns the on-disk directory for the given kit/variant.
func (l *Library) VariantPath(kit, variant int) (string, error) {
	if kit < 0 || kit >= len(l.Kits) {
		return "", fmt.Errorf("sample: kit index %d out of range", kit)
	}
	k := l.Kits[kit]
	if variant < 0 || variant >= len(k.Variants) {
		return "", fmt.Errorf("sample: variant index %d out of range for kit %s", variant, k.Name)
	}
	return filepath.Join(l.Root, k.Name, k.Variants[variant]), nil
}

// LoadBank loads every configured sample for the given kit/variant. A
// missing sample file becomes a silent zero-length placeholder rather than
// a failure; only a malformed WAV file fails the whole load.
func (l *Library) LoadBank(kit, variant int) (*Bank, error) {
	path, err := l.VariantPath(kit, variant)
	if err != nil {
		return nil, err
	}
	k := l.Kits[kit]

	samples := make([]*Data, len(l.SampleNames))
	for i, name := range l.SampleNames {
		samplePath := filepath.Join(path, name)
		if _, statErr := os.Stat(samplePath); statErr != nil {
			log.Printf("sample: %s/%s missing %s, using silent placeholder",
				k.Name, k.Variants[variant], name)
			samples[i] = Empty()
			continue
		}

		data, loadErr := LoadWAV(samplePath)
		if loadErr != nil {
			return nil, fmt.Errorf("sample: load bank %s/%s: %w", k.Name, k.Variants[variant], loadErr)
		}
		samples[i] = data
	}

	return &Bank{
		Samples:     samples,
		Gains:       l.Gains,
		KitName:     k.Name,
		VariantName: k.Variants[variant],
	}, nil
}
