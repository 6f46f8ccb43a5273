package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tradefinlabs/docpipeline/constants"
	"github.com/tradefinlabs/docpipeline/internal/llm"
	"github.com/tradefinlabs/docpipeline/internal/registry"
)

func TestNormalize(t *testing.T) {
	r := New(registry.Fallback(), &llm.Mock{}, 0, nil)

	require.Equal(t, "commercial_invoice", r.Normalize("commercial_invoice"))
	require.Equal(t, constants.DocTypeOther, r.Normalize("alien_artifact"))
	require.Equal(t, constants.DocTypeOther, r.Normalize(""))
}

func TestShouldExtract(t *testing.T) {
	r := New(registry.Fallback(), &llm.Mock{}, 0, nil)

	require.True(t, r.ShouldExtract("commercial_invoice"))
	require.True(t, r.ShouldExtract("bill_of_lading"))
	require.False(t, r.ShouldExtract("letter_of_credit"))
	require.False(t, r.ShouldExtract(constants.DocTypeOther))
}

func TestRouteExtractionEnabled(t *testing.T) {
	oracle := &llm.Mock{Responses: []string{`{"invoice_number": "INV-9"}`}}
	r := New(registry.Fallback(), oracle, 0, nil)

	res := r.Route(context.Background(), "commercial_invoice", "INVOICE ...")
	require.NotNil(t, res)
	require.Equal(t, "INV-9", res.Fields["invoice_number"])
}

func TestRouteNoExtractionNeeded(t *testing.T) {
	oracle := &llm.Mock{}
	r := New(registry.Fallback(), oracle, 0, nil)

	require.Nil(t, r.Route(context.Background(), "purchase_order", "PO ..."))
	require.Zero(t, oracle.CallCount())
}

func TestRouteUnknownTypeCollapsesToOther(t *testing.T) {
	oracle := &llm.Mock{}
	r := New(registry.Fallback(), oracle, 0, nil)

	require.Nil(t, r.Route(context.Background(), "warp_manifest", "???"))
	require.Zero(t, oracle.CallCount())
}
