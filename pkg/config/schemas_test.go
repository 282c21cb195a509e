package config

import (
	"context"
	"sort"
	"testing"
)

func TestSchemaRegistry_BuiltIns(t *testing.T) {
	sr := NewSchemaRegistry()

	names := sr.ListSchemas()
	sort.Strings(names)
	if len(names) != 2 || names[0] != SchemaConfig || names[1] != SchemaTariff {
		t.Fatalf("unexpected schemas: %v", names)
	}
}

func TestSchemaRegistry_Tariff(t *testing.T) {
	sr := NewSchemaRegistry()
	ctx := context.Background()

	tests := []struct {
		name    string
		data    map[string]interface{}
		wantErr bool
	}{
		{
			name: "valid lines",
			data: map[string]interface{}{
				"taxes": []interface{}{
					map[string]interface{}{"name": "CST", "rate": 0.02},
					map[string]interface{}{"name": "GST", "rate": 0.18},
				},
			},
		},
		{
			name: "no lines",
			data: map[string]interface{}{"taxes": []interface{}{}},
		},
		{
			name: "rate out of range",
			data: map[string]interface{}{
				"taxes": []interface{}{
					map[string]interface{}{"name": "GST", "rate": 18.0},
				},
			},
			wantErr: true,
		},
		{
			name: "missing name",
			data: map[string]interface{}{
				"taxes": []interface{}{
					map[string]interface{}{"rate": 0.1},
				},
			},
			wantErr: true,
		},
		{
			name: "rate is a string",
			data: map[string]interface{}{
				"taxes": []interface{}{
					map[string]interface{}{"name": "GST", "rate": "18%"},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sr.ValidateAgainstSchema(ctx, SchemaTariff, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateAgainstSchema() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSchemaRegistry_UnknownSchema(t *testing.T) {
	sr := NewSchemaRegistry()
	if err := sr.ValidateAgainstSchema(context.Background(), "nope", struct{}{}); err == nil {
		t.Fatal("expected error for unknown schema")
	}
}

func TestSchemaRegistry_RegisterInvalid(t *testing.T) {
	sr := NewSchemaRegistry()
	if err := sr.RegisterSchema("broken", "a: {"); err == nil {
		t.Fatal("expected compile error")
	}
}
