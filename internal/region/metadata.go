// Package region loads mare outlines, joins them with the metadata table,
// and answers containment queries.
package region

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/couchcryptid/mare-crater-map/internal/domain"
)

// Metadata column names as they appear in mareInfo.csv.
const (
	ColMare        = "Mare"
	ColEnglishName = "English Name"
	ColLatitude    = "Latitude"
	ColLongitude   = "Longitude"
	ColDiameter    = "Diameter"
)

// LoadMetadata reads the metadata table keyed by the normalized "Mare" column.
// Rows with an empty mare name are skipped; a later row with the same key
// replaces an earlier one.
func LoadMetadata(ctx context.Context, path string) (map[string]domain.MareInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "region: open metadata %s", path)
	}
	defer f.Close()
	return readMetadata(ctx, f)
}

func readMetadata(ctx context.Context, r io.Reader) (map[string]domain.MareInfo, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "region: read metadata header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	mareIdx := -1
	for i, h := range header {
		if strings.EqualFold(h, ColMare) {
			mareIdx = i
			break
		}
	}
	if mareIdx < 0 {
		return nil, eris.Errorf("region: metadata header %v has no %q column", header, ColMare)
	}

	out := make(map[string]domain.MareInfo)
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "region: context cancelled")
		}
		row, err := reader.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "region: read metadata row")
		}
		if mareIdx >= len(row) {
			continue
		}
		key := domain.NormalizeKey(row[mareIdx])
		if key == "" {
			continue
		}
		out[key] = infoFromRow(header, row)
	}
}

func infoFromRow(header, row []string) domain.MareInfo {
	var info domain.MareInfo
	for i, h := range header {
		if i >= len(row) {
			break
		}
		v := strings.TrimSpace(row[i])
		switch {
		case strings.EqualFold(h, ColMare):
			info.Mare = v
		case strings.EqualFold(h, ColEnglishName):
			info.EnglishName = v
		case strings.EqualFold(h, ColLatitude):
			info.Latitude = v
		case strings.EqualFold(h, ColLongitude):
			info.Longitude = v
		case strings.EqualFold(h, ColDiameter):
			info.Diameter = v
		default:
			if h == "" {
				continue
			}
			if info.Extra == nil {
				info.Extra = make(map[string]string)
			}
			info.Extra[h] = v
		}
	}
	return info
}
