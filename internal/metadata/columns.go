package metadata

import (
	"github.com/tansive/vaultconsole/internal/console/table"
)

// TimestampField is the field every kind's date-range filter applies to.
const TimestampField = "createdate"

var labels = map[string]string{
	"id":                   "ID",
	"projectshortname":     "Project",
	"dpname":               "Data product",
	"dsname":               "Dataset",
	"comptype":             "Type",
	"compname":             "Component",
	"compshortname":        "Short name",
	"compkeyname":          "Key name",
	"bkfields":             "Business keys",
	"tenantid":             "Tenant",
	"bkcarea":              "BKC area",
	"version":              "Version",
	"hubname":              "Hub",
	"hubversion":           "Hub version",
	"parenttype":           "Parent type",
	"parentname":           "Parent",
	"satlattr":             "Attributes",
	"subseqattr":           "Sub-sequence keys",
	"srctabname":           "Source table",
	"srctabfields":         "Source fields",
	"tgttabname":           "Target table",
	"tgttabfields":         "Target fields",
	"bkeys":                "Business keys",
	"rsname":               "Source selection",
	"rsversion":            "Source version",
	"rtname":               "Target selection",
	"rtversion":            "Target version",
	"satlname":             "Satellite",
	"satlversion":          "Satellite version",
	"snapshotfreq":         "Snapshot frequency",
	"loadtype":             "Load type",
	"sg1name":              "Stage group 1",
	"transformfields":      "Transform fields",
	"linkname":             "Link",
	"linkversion":          "Link version",
	"colname":              "Column",
	"datatype":             "Data type",
	"description":          "Description",
	"grain":                "Grain",
	"measures":             "Measures",
	"dimensions":           "Dimensions",
	"projectname":          "Project name",
	"dataproductshortname": "Data product",
	"dataproductname":      "Data product name",
	"datasetshortname":     "Dataset",
	"datasetname":          "Dataset name",
	"useremail":            "User",
	"role":                 "Role",
	"createdate":           "Created",
	"user_email":           "Created by",
}

var listFields = map[string]bool{
	"bkfields": true, "satlattr": true, "subseqattr": true, "srctabfields": true,
	"tgttabfields": true, "bkeys": true, "transformfields": true,
	"measures": true, "dimensions": true,
}

// Label returns the display label for a field key.
func Label(key string) string {
	if l, ok := labels[key]; ok {
		return l
	}
	return key
}

// Columns returns the fixed column list for kind k: id first, then the kind's
// own fields in declaration order, then the audit fields.
func Columns(k Kind) []table.Column {
	rec, err := New(k)
	if err != nil {
		return nil
	}
	cols := []table.Column{{Key: "id", Label: Label("id")}}
	for _, key := range FieldOrder(rec) {
		cell := table.CellText
		if listFields[key] {
			cell = table.CellList
		}
		cols = append(cols, table.Column{Key: key, Label: Label(key), Cell: cell})
	}
	return append(cols,
		table.Column{Key: TimestampField, Label: Label(TimestampField), Cell: table.CellTimestamp},
		table.Column{Key: "user_email", Label: Label("user_email")},
	)
}

// View returns the table view for kind k.
func View(k Kind) table.View[Record] {
	return table.View[Record]{
		Columns:        Columns(k),
		TimestampField: TimestampField,
		Fields:         Fields,
	}
}
