package export

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var exportTime = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func TestCSVEmptyInput(t *testing.T) {
	name, data := CSV(nil, "f", exportTime)
	assert.Equal(t, "f_2024-05-06_07-08-09.csv", name)
	assert.Equal(t, "\n", string(data))

	name, data = CSV([]json.RawMessage{}, "hubs", exportTime)
	assert.Equal(t, "hubs_2024-05-06_07-08-09.csv", name)
	assert.Equal(t, "\n", string(data))
}

func TestCSVHeaderFollowsFirstRow(t *testing.T) {
	rows := []json.RawMessage{
		json.RawMessage(`{"compname":"cust","version":1,"bkfields":["id","region"],"active":true}`),
		json.RawMessage(`{"version":2,"compname":"say \"hi\", ok","extra":"ignored"}`),
		json.RawMessage(`{"compname":null}`),
	}
	_, data := CSV(rows, "f", exportTime)
	assert.Equal(t,
		"compname,version,bkfields,active\n"+
			`"cust",1,"id, region",true`+"\n"+
			`"say ""hi"", ok",2,,`+"\n"+
			",,,\n",
		string(data))
}

func TestCSVDottedKeys(t *testing.T) {
	_, data := CSV([]json.RawMessage{json.RawMessage(`{"a.b":"x"}`)}, "f", exportTime)
	assert.Equal(t, "a.b\n\"x\"\n", string(data))
}

func TestCSVHeaderQuotesSeparators(t *testing.T) {
	rows := []json.RawMessage{json.RawMessage(`{"name, first":"ann","say \"hi\"":"x","plain":1}`)}
	_, data := CSV(rows, "f", exportTime)
	assert.Equal(t,
		`"name, first","say ""hi""",plain`+"\n"+
			`"ann","x",1`+"\n",
		string(data))
}
