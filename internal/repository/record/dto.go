package record

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/kailas-cloud/answerdex/internal/domain"
)

// buildHashFields converts a domain IndexRecord into a flat map for HSET.
func buildHashFields(rec *domain.IndexRecord) map[string]string {
	// contact_id is written even when empty so an upsert that clears the
	// owning contact overwrites the previous value.
	return map[string]string{
		"tenant_id":  rec.TenantID,
		"category":   string(rec.Category),
		"object_id":  rec.ObjectID,
		"contact_id": rec.ContactID,
		"label":      rec.Label,
		"text":       rec.Text,
		"vector":     vectorToBytes(rec.Vector),
		"updated_at": strconv.FormatInt(rec.UpdatedAt.UnixMilli(), 10),
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
