// Package workload reads and writes the recipient lists a batch run consumes.
package workload

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/Siasom1/gorrillazz-minter/core/types"
)

// record is the on-disk shape. Count is decoded loosely so that a negative
// or fractional value is reported instead of silently truncated.
type record struct {
	Address string      `json:"address" yaml:"address"`
	Count   json.Number `json:"count" yaml:"count"`
}

// Load reads a work list, choosing the format from the file extension.
// Any problem is a ConfigurationError: nothing has been submitted yet.
func Load(path string) (types.WorkQueue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.ConfigurationError{Field: "work", Reason: "read work list", Err: err}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".csv":
		return ParseCSV(bytes.NewReader(data))
	default:
		return nil, types.NewConfigError("work", "unsupported work list format %q (use .json, .yaml or .csv)", filepath.Ext(path))
	}
}

func ParseJSON(data []byte) (types.WorkQueue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var recs []record
	if err := dec.Decode(&recs); err != nil {
		return nil, &types.ConfigurationError{Field: "work", Reason: "malformed JSON work list", Err: err}
	}
	return fromRecords(recs)
}

func ParseYAML(data []byte) (types.WorkQueue, error) {
	var raw []struct {
		Address string    `yaml:"address"`
		Count   yaml.Node `yaml:"count"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &types.ConfigurationError{Field: "work", Reason: "malformed YAML work list", Err: err}
	}

	recs := make([]record, len(raw))
	for i, r := range raw {
		recs[i] = record{Address: r.Address, Count: json.Number(r.Count.Value)}
	}
	return fromRecords(recs)
}

// ParseCSV accepts "address,count" rows. A first row whose count column is
// not numeric is treated as a header.
func ParseCSV(r io.Reader) (types.WorkQueue, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var recs []record
	for line := 1; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &types.ConfigurationError{Field: "work", Reason: "malformed CSV work list", Err: err}
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "address") {
			continue
		}
		recs = append(recs, record{Address: strings.TrimSpace(row[0]), Count: json.Number(strings.TrimSpace(row[1]))})
	}
	return fromRecords(recs)
}

func fromRecords(recs []record) (types.WorkQueue, error) {
	q := make(types.WorkQueue, 0, len(recs))
	for i, rec := range recs {
		item, err := parseRecord(rec)
		if err != nil {
			return nil, types.NewConfigError(fmt.Sprintf("work[%d]", i), "%v", err)
		}
		q = append(q, item)
	}
	return q, nil
}

func parseRecord(rec record) (types.WorkItem, error) {
	addr := strings.TrimSpace(rec.Address)
	if !common.IsHexAddress(addr) {
		return types.WorkItem{}, fmt.Errorf("invalid address %q", rec.Address)
	}

	raw := strings.TrimSpace(rec.Count.String())
	if raw == "" {
		return types.WorkItem{}, fmt.Errorf("missing count for %s", addr)
	}
	count, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return types.WorkItem{}, fmt.Errorf("count %q for %s is not a non-negative integer", raw, addr)
	}

	return types.WorkItem{Recipient: common.HexToAddress(addr), Count: count}, nil
}

// Write stores q as a JSON work list that Load accepts.
func Write(path string, q types.WorkQueue) error {
	recs := make([]map[string]any, 0, len(q))
	for _, item := range q {
		recs = append(recs, map[string]any{
			"address": item.Recipient.Hex(),
			"count":   item.Count,
		})
	}

	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
