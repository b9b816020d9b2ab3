// Package sismo flattens ArcGIS features into the row shape kept in DynamoDB.
package sismo

import (
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Sismo is one reported seismic event. Every field is a string, empty when
// the feed had nothing, so the table schema stays uniform.
type Sismo struct {
	ID                   string `json:"id"`
	Codigo               string `json:"codigo"`
	FechaEvento          string `json:"fechaEvento"`
	HoraLocal            string `json:"horaLocal"`
	Referencia           string `json:"referencia"`
	Magnitud             string `json:"magnitud"`
	Intensidad           string `json:"intensidad"`
	ProfundidadKm        string `json:"profundidadKm"`
	ProfundidadCategoria string `json:"profundidadCategoria"`
	Departamento         string `json:"departamento"`
	Sentido              string `json:"sentido"`
	UltimoFlag           string `json:"ultimoFlag"`
}

// Normalize flattens one feature. It never fails: missing or null
// attributes degrade to empty strings. The id is freshly generated on
// every call, it is a storage key only.
func Normalize(feature gjson.Result) Sismo {

	attrs := feature.Get("attributes")

	fecha := attrs.Get("fechaevento")
	if !fecha.Exists() || fecha.Type == gjson.Null {
		fecha = attrs.Get("fecha")
	}

	return Sismo{
		ID:                   uuid.New().String(),
		Codigo:               attrs.Get("code").String(),
		FechaEvento:          msToISO(fecha),
		HoraLocal:            attrs.Get("hora").String(),
		Referencia:           attrs.Get("ref").String(),
		Magnitud:             attrs.Get("magnitud").String(),
		Intensidad:           attrs.Get("int_").String(),
		ProfundidadKm:        attrs.Get("prof").String(),
		ProfundidadCategoria: attrs.Get("profundidad").String(),
		Departamento:         attrs.Get("departamento").String(),
		Sentido:              attrs.Get("sentido").String(),
		UltimoFlag:           attrs.Get("ultimo").String(),
	}
}

// msToISO converts an ArcGIS date, milliseconds since the Unix epoch, to an
// ISO-8601 UTC timestamp. Non-numeric values come back in raw string form.
func msToISO(r gjson.Result) string {

	if !r.Exists() || r.Type == gjson.Null {
		return ""
	}
	if r.Type != gjson.Number {
		return r.String()
	}

	ms := int64(r.Num)
	sec := ms / 1000

	// years 1 to 9999 only, anything else stays raw
	if sec < -62135596800 || sec > 253402300799 {
		return r.String()
	}

	t := time.UnixMilli(ms).UTC()
	if ms%1000 == 0 {
		return t.Format("2006-01-02T15:04:05")
	}
	return t.Format("2006-01-02T15:04:05.000000")
}
