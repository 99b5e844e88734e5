package report

import (
	"bytes"
	"html/template"
	"strconv"
	"strings"
)

var templateFuncs = template.FuncMap{
	"sizeList": sizeList,
	// stored images are base64 data URLs, which the default URL filter
	// would reject
	"safeURL": func(s string) template.URL { return template.URL(s) },
}

// sheetTemplate renders the printable supplier order sheet. Text size comes
// from the operator's stored preference.
var sheetTemplate = template.Must(template.New("sheet").
	Funcs(templateFuncs).
	Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Supplier orders {{.Date}}</title>
<style>
body { font-family: sans-serif; font-size: {{.TextSize}}px; }
.supplier-section { page-break-inside: avoid; margin-bottom: 1.5em; }
.supplier-title { font-weight: bold; border-bottom: 1px solid #333; padding: 4px 0; }
.product-row { display: flex; align-items: center; padding: 4px 0; border-bottom: 1px dotted #aaa; }
.product-image { width: 64px; height: 64px; object-fit: cover; margin-right: 8px; }
.grand-total { margin-top: 1em; font-weight: bold; }
</style>
</head>
<body>
{{- range .Sheets}}
<div class="supplier-section">
  <div class="supplier-title">{{.Supplier}} (total: {{.Total}})</div>
  {{- range .Products}}
  <div class="product-row">
    {{- if .Image}}<img class="product-image" src="{{safeURL .Image}}" alt="{{.Code}}">{{end}}
    <div class="product-info">
      <div class="product-code">{{.Code}}</div>
      <div class="product-name">{{if .Name}}{{.Name}}{{else}}-{{end}}</div>
      <div class="size-list">{{sizeList .Sizes}}</div>
      <div class="product-total">total: {{.Total}}</div>
    </div>
  </div>
  {{- end}}
</div>
{{- end}}
<div class="grand-total">All suppliers: {{.GrandTotal}}</div>
</body>
</html>
`))

var labelTemplate = template.Must(template.New("labels").
	Funcs(templateFuncs).
	Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Order labels {{.Date}}</title>
<style>
body { font-family: sans-serif; font-size: {{.TextSize}}px; }
.label { display: inline-block; border: 1px solid #333; padding: 6px; margin: 4px; width: 180px; }
.label img { width: 100%; }
</style>
</head>
<body>
{{- range .Labels}}
<div class="label">
  {{- if .Image}}<img src="{{safeURL .Image}}" alt="{{.Code}}">{{end}}
  <div>{{.Customer}}</div>
  <div>{{.Code}} {{.Name}}</div>
  <div>size: {{.Size}}</div>
  {{- if .ShowPrice}}<div>price: {{.Price}}</div>{{end}}
</div>
{{- end}}
</body>
</html>
`))

// sizeList formats per-size quantities the way the printed sheet shows them,
// "size*qty" joined with the enumeration comma.
func sizeList(sizes []SizeQty) string {
	parts := make([]string, 0, len(sizes))
	for _, s := range sizes {
		parts = append(parts, s.Size+"*"+strconv.Itoa(s.Qty))
	}
	return strings.Join(parts, "、")
}

// SheetHTML renders the supplier order sheet for printing.
func SheetHTML(sheets []SupplierSheet, grandTotal int, date string, textSize int) (string, error) {
	var buf bytes.Buffer
	err := sheetTemplate.Execute(&buf, map[string]interface{}{
		"Sheets":     sheets,
		"GrandTotal": grandTotal,
		"Date":       date,
		"TextSize":   textSize,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LabelsHTML renders the per-unit order labels for printing.
func LabelsHTML(labels []Label, date string, textSize int) (string, error) {
	var buf bytes.Buffer
	err := labelTemplate.Execute(&buf, map[string]interface{}{
		"Labels":   labels,
		"Date":     date,
		"TextSize": textSize,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
