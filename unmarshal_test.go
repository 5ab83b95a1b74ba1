package brace

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X float64 `brace:"x"`
	Y float64 `brace:"y"`
}

type signal struct {
	Kind  string `brace:"type"`
	Name  string
	Count uint8 `brace:"count"`
}

type stop struct {
	Name      string   `brace:"name,required"`
	Pos       point    `brace:"pos"`
	Direction *int     `brace:"direction"`
	Tags      []string `brace:"tag,all"`
	Signals   []signal `brace:"signals"`
	Extra     Value    `brace:"extra"`
	Ignored   string   `brace:"-"`
	hidden    string
}

func TestUnmarshal_Struct(t *testing.T) {
	input := `{
		name="Iron Drop",
		pos={x=-1360.5, y=-557.5},
		direction=4,
		tag="iron", tag="drop",
		signals={
			{type="item", name="iron-plate", count=200},
			{type="virtual", name="signal-L", count=1}
		},
		extra={1, 2},
		ignored="nope",
		hidden="nope"
	}`

	var got stop
	require.NoError(t, Unmarshal([]byte(input), &got))

	direction := 4
	want := stop{
		Name:      "Iron Drop",
		Pos:       point{X: -1360.5, Y: -557.5},
		Direction: &direction,
		Tags:      []string{"iron", "drop"},
		Signals: []signal{
			{Kind: "item", Name: "iron-plate", Count: 200},
			{Kind: "virtual", Name: "signal-L", Count: 1},
		},
		Extra: Object{{Value: Float(1)}, {Value: Float(2)}},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(stop{})); diff != "" {
		t.Errorf("Unmarshal() mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshal_FirstLabelWins(t *testing.T) {
	var got struct {
		Name string `brace:"name"`
	}
	require.NoError(t, Unmarshal([]byte(`{name="a", name="b"}`), &got))
	assert.Equal(t, "a", got.Name)
}

func TestUnmarshal_MissingOptionalField(t *testing.T) {
	var got stop
	require.NoError(t, Unmarshal([]byte(`{name="x"}`), &got))
	assert.Nil(t, got.Direction)
	assert.Empty(t, got.Tags)
}

func TestUnmarshal_Required(t *testing.T) {
	var got stop
	err := Unmarshal([]byte(`{pos={x=1, y=2}}`), &got)
	assert.EqualError(t, err, "required field name not found")

	var tagged struct {
		Tags []string `brace:"tag,all,required"`
	}
	err = Unmarshal([]byte(`{}`), &tagged)
	assert.EqualError(t, err, "required field tag not found")
}

func TestUnmarshal_Slice(t *testing.T) {
	var got [][]float64
	require.NoError(t, Unmarshal([]byte(`{{1, 2}, {x=3}, {}}`), &got))
	assert.Equal(t, [][]float64{{1, 2}, {3}, {}}, got)
}

func TestUnmarshal_Map(t *testing.T) {
	var got map[string]any
	require.NoError(t, Unmarshal([]byte(`{a=1, b="two", c={}}`), &got))
	assert.Equal(t, map[string]any{
		"a": Float(1),
		"b": String("two"),
		"c": Object{},
	}, got)

	var dup map[string]float64
	err := Unmarshal([]byte(`{a=1, a=2}`), &dup)
	assert.EqualError(t, err, "duplicate label a")

	var unlabeled map[string]float64
	err = Unmarshal([]byte(`{a=1, 2}`), &unlabeled)
	assert.EqualError(t, err, "index 1: unlabeled entry cannot be stored in map[string]float64")
}

func TestUnmarshal_TableField(t *testing.T) {
	var got struct {
		Raw Table `brace:"raw"`
	}
	require.NoError(t, Unmarshal([]byte(`{raw={a=1, 2}}`), &got))
	assert.Equal(t, Table{{Label: "a", Value: Float(1)}, {Value: Float(2)}}, got.Raw)

	var whole Table
	require.NoError(t, UnmarshalTable(Table{{Value: String("s")}}, &whole))
	assert.Equal(t, Table{{Value: String("s")}}, whole)
}

func TestUnmarshal_NumericCoercion(t *testing.T) {
	type bytes struct {
		R uint8 `brace:"r"`
	}
	type ints struct {
		N int16 `brace:"n"`
	}
	type floats struct {
		F float32 `brace:"f"`
	}

	tests := []struct {
		name    string
		input   string
		target  any
		wantErr string
	}{
		{"uint8 max", `{r=255}`, &bytes{}, ""},
		{"uint8 overflow", `{r=256}`, &bytes{}, "field R: 256 overflows uint8"},
		{"uint8 negative", `{r=-1}`, &bytes{}, "field R: -1 overflows uint8"},
		{"uint8 fraction", `{r=1.5}`, &bytes{}, "field R: cannot decode non-integral 1.5 into uint8"},
		{"uint8 integral fraction", `{r=2.0}`, &bytes{}, ""},
		{"int16 min", `{n=-32768}`, &ints{}, ""},
		{"int16 overflow", `{n=32768}`, &ints{}, "field N: 32768 overflows int16"},
		{"int huge", `{n=99999999999999999999}`, &ints{}, "field N: 1e+20 overflows int16"},
		{"float32", `{f=0.5}`, &floats{}, ""},
		{"float32 overflow", `{f=1` + "000000000000000000000000000000000000000000000000000" + `}`, &floats{}, "field F: 1e+51 overflows float32"},
		{"string into number", `{r="1"}`, &bytes{}, "field R: cannot decode string into uint8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Unmarshal([]byte(tt.input), tt.target)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantErr)
			}
		})
	}
}

func TestUnmarshal_Mismatch(t *testing.T) {
	var got struct {
		Pos  point   `brace:"pos"`
		Name string  `brace:"name"`
		List []uint8 `brace:"list"`
	}

	err := Unmarshal([]byte(`{pos=5}`), &got)
	assert.EqualError(t, err, "field Pos: cannot decode float into brace.point")

	err = Unmarshal([]byte(`{name={}}`), &got)
	assert.EqualError(t, err, "field Name: cannot decode object into string")

	err = Unmarshal([]byte(`{list={1, 300}}`), &got)
	assert.EqualError(t, err, "field List: index 1: 300 overflows uint8")
}

func TestUnmarshal_InvalidTarget(t *testing.T) {
	var s stop
	assert.EqualError(t, UnmarshalTable(Table{}, s), "unmarshal target must be a non-nil pointer")
	assert.EqualError(t, UnmarshalTable(Table{}, (*stop)(nil)), "unmarshal target must be a non-nil pointer")

	var n int
	assert.EqualError(t, UnmarshalTable(Table{}, &n), "unmarshal target must point to a struct, slice, map or interface, not int")

	var bad struct {
		Flag bool `brace:"flag"`
	}
	assert.EqualError(t, Unmarshal([]byte(`{flag=1}`), &bad), "field Flag: unsupported field type: bool")

	var notSlice struct {
		Tag string `brace:"tag,all"`
	}
	assert.EqualError(t, Unmarshal([]byte(`{tag="a"}`), &notSlice), "field Tag: option all needs a slice, not string")
}

func TestUnmarshal_ParseError(t *testing.T) {
	var got stop
	err := Unmarshal([]byte(`{name=}`), &got)
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestUnmarshal_Interface(t *testing.T) {
	var got any
	require.NoError(t, Unmarshal([]byte(`{a=1}`), &got))
	assert.Equal(t, Object{{Label: "a", Value: Float(1)}}, got)

	var target struct{ A any }
	err := UnmarshalTable(Table{{Label: "a"}}, &target)
	require.Error(t, err)
	assert.ErrorContains(t, err, "cannot decode nothing into")
	assert.Nil(t, target.A)
}
