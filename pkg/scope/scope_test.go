package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	id      string
	name    string
	tenant  *string
	ordinal int
}

func (r row) FallbackKey() string { return r.name }
func (r row) Tenant() *string     { return r.tenant }
func (r row) Ordinal() int        { return r.ordinal }
func (r row) Identifier() string  { return r.id }

func ptr(s string) *string { return &s }

func ids(rows []row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.id
	}
	return out
}

var feeCategories = []row{
	{id: "g-tuition", name: "tuition", ordinal: 1},
	{id: "g-bus", name: "bus", ordinal: 2},
	{id: "g-lab", name: "lab", ordinal: 3},
	{id: "a-bus", name: "bus", tenant: ptr("school-a"), ordinal: 2},
	{id: "a-sport", name: "sport", tenant: ptr("school-a"), ordinal: 4},
	{id: "b-lab", name: "lab", tenant: ptr("school-b"), ordinal: 3},
}

func TestEffective_TenantRowShadowsGlobal(t *testing.T) {
	got := Effective(feeCategories, "school-a", true)
	assert.Equal(t, []string{"g-tuition", "a-bus", "g-lab", "a-sport"}, ids(got))
}

func TestEffective_OtherTenantsNeverVisible(t *testing.T) {
	got := Effective(feeCategories, "school-b", true)
	assert.Equal(t, []string{"g-tuition", "g-bus", "b-lab"}, ids(got))
	for _, r := range got {
		if r.tenant != nil {
			assert.Equal(t, "school-b", *r.tenant)
		}
	}
}

func TestEffective_NoTenantSeesGlobalOnly(t *testing.T) {
	got := Effective(feeCategories, "", false)
	assert.Equal(t, []string{"g-tuition", "g-bus", "g-lab"}, ids(got))
}

func TestEffective_UnknownTenantInheritsEverything(t *testing.T) {
	got := Effective(feeCategories, "school-z", true)
	assert.Equal(t, []string{"g-tuition", "g-bus", "g-lab"}, ids(got))
}

func TestEffective_DeterministicTieBreak(t *testing.T) {
	dupes := []row{
		{id: "b", name: "x", tenant: ptr("t"), ordinal: 5},
		{id: "a", name: "x", tenant: ptr("t"), ordinal: 5},
		{id: "c", name: "x", tenant: ptr("t"), ordinal: 1},
		{id: "g", name: "x", ordinal: 0},
	}
	for i := 0; i < 10; i++ {
		got := Effective(dupes, "t", true)
		require.Len(t, got, 1)
		assert.Equal(t, "c", got[0].id)
	}

	sameOrdinal := []row{
		{id: "b", name: "x", tenant: ptr("t"), ordinal: 5},
		{id: "a", name: "x", tenant: ptr("t"), ordinal: 5},
	}
	assert.Equal(t, "a", Effective(sameOrdinal, "t", true)[0].id)
}

func TestPaginate_AfterProjection(t *testing.T) {
	effective := Effective(feeCategories, "school-a", true)

	first := Paginate(effective, Page{Limit: 2})
	second := Paginate(effective, Page{Limit: 2, Offset: 2})
	assert.Equal(t, []string{"g-tuition", "a-bus"}, ids(first))
	assert.Equal(t, []string{"g-lab", "a-sport"}, ids(second))

	assert.Empty(t, Paginate(effective, Page{Offset: 10}))
	assert.Len(t, Paginate(effective, Page{}), 4)
}

func TestPaginate_OrderByName(t *testing.T) {
	effective := Effective(feeCategories, "school-a", true)
	got := Paginate(effective, Page{Order: OrderName})
	assert.Equal(t, []string{"a-bus", "g-lab", "a-sport", "g-tuition"}, ids(got))
}

func TestPage_Validate(t *testing.T) {
	assert.NoError(t, Page{}.Validate())
	assert.NoError(t, Page{Limit: 5, Offset: 1, Order: OrderName}.Validate())
	assert.Error(t, Page{Limit: -1}.Validate())
	assert.Error(t, Page{Order: Order(7)}.Validate())
}

func TestParseOrder(t *testing.T) {
	tests := []struct {
		in      string
		want    Order
		wantErr bool
	}{
		{in: "", want: OrderOrdinal},
		{in: "ordinal", want: OrderOrdinal},
		{in: "name", want: OrderName},
		{in: "Name", want: OrderName},
		{in: "sort_order; DROP TABLE x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOrder(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, []string{"ordinal", "name"}, OrderStrings())
}
