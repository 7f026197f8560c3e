package server

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dropaudit/internal/model"
)

func TestCollectionCRUD(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/collections", map[string]string{
		"name":        "og-holders",
		"description": "first wave",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	coll := decodeBody[model.Collection](t, rec)
	assert.NotEmpty(t, coll.ID)
	assert.Equal(t, "og-holders", coll.Name)

	rec = doJSON(t, srv, http.MethodGet, "/collections/"+coll.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/collections", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]model.Collection](t, rec)
	require.Len(t, list, 1)

	rec = doJSON(t, srv, http.MethodDelete, "/collections/"+coll.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/collections/"+coll.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCollectionDuplicateName(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/collections", map[string]string{"name": "holders"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/collections", map[string]string{"name": "holders"})
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody[errorBody](t, rec)
	assert.Equal(t, "duplicate_name", body.Error)
}

func TestCreateCollectionMissingName(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/collections", map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddAddresses(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/collections", map[string]string{"name": "wl"})
	require.Equal(t, http.StatusCreated, rec.Code)
	coll := decodeBody[model.Collection](t, rec)

	rec = doJSON(t, srv, http.MethodPost, "/collections/"+coll.ID+"/addresses", map[string][]string{
		"addresses": {addrA, "0x" + strings.ToUpper(addrA[2:]), "not-an-address", " ", addrB},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[model.AddResult](t, rec)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.InvalidCount)
	require.Len(t, res.Invalid, 1)
	assert.Equal(t, "not-an-address", res.Invalid[0].Address)
	assert.Equal(t, 2, res.Total)

	// Re-adding the same addresses is idempotent and leaves total unchanged.
	rec = doJSON(t, srv, http.MethodPost, "/collections/"+coll.ID+"/addresses", map[string][]string{
		"addresses": {addrA, addrB},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	res = decodeBody[model.AddResult](t, rec)
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 2, res.Total)
}

func TestAddAddressesTotalIsMembershipCount(t *testing.T) {
	srv, st := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/collections", map[string]string{"name": "wl"})
	require.Equal(t, http.StatusCreated, rec.Code)
	coll := decodeBody[model.Collection](t, rec)

	for i, addr := range []string{addrA, addrB} {
		rec = doJSON(t, srv, http.MethodPost, "/collections/"+coll.ID+"/addresses", map[string][]string{
			"addresses": {addr},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		res := decodeBody[model.AddResult](t, rec)
		assert.Equal(t, 1, res.Added)
		assert.Equal(t, i+1, res.Total)
	}

	count, err := st.CountAddresses(context.Background(), coll.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAddAddressesUnknownCollection(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/collections/missing/addresses", map[string][]string{
		"addresses": {addrA},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadToCollection(t *testing.T) {
	srv, st := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/collections", map[string]string{"name": "airdrop"})
	require.Equal(t, http.StatusCreated, rec.Code)
	coll := decodeBody[model.Collection](t, rec)

	rec = doMultipart(t, srv, "/collections/"+coll.ID+"/upload", nil, map[string][]byte{
		"wallets.csv": []byte(addrA + "\nbadrow\n" + addrB + "\n" + addrA),
	}, "file")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[model.AddResult](t, rec)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 1, res.InvalidCount)
	assert.Equal(t, 2, res.Total)

	count, err := st.CountAddresses(context.Background(), coll.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRemoveAddress(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()

	coll, err := st.CreateCollection(ctx, "wl", "")
	require.NoError(t, err)
	_, err = st.AddAddresses(ctx, coll.ID, []string{addrA})
	require.NoError(t, err)

	rec := doJSON(t, srv, http.MethodDelete, "/collections/"+coll.ID+"/addresses/"+addrA, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	count, err := st.CountAddresses(ctx, coll.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	rec = doJSON(t, srv, http.MethodDelete, "/collections/"+coll.ID+"/addresses/nonsense", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadCollection(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()

	coll, err := st.CreateCollection(ctx, "OG Holders!", "")
	require.NoError(t, err)
	_, err = st.AddAddresses(ctx, coll.ID, []string{addrA, addrB})
	require.NoError(t, err)

	req := doJSON(t, srv, http.MethodGet, "/collections/"+coll.ID+"/download", nil)
	require.Equal(t, http.StatusOK, req.Code)
	assert.Equal(t, "text/csv", req.Header().Get("Content-Type"))
	assert.Contains(t, req.Header().Get("Content-Disposition"), "og-holders.csv")

	lines := strings.Split(strings.TrimSpace(req.Body.String()), "\n")
	assert.ElementsMatch(t, []string{addrA, addrB}, lines)
}

func TestScreenBatch(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/wallet-screener/batch", map[string]any{
		"addresses": []string{addrA, addrB},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[map[string][]model.ScreenResult](t, rec)
	require.Len(t, res["results"], 2)
	assert.Equal(t, addrA, res["results"][0].Address)
	assert.Equal(t, model.RiskLow, res["results"][0].Risk)

	rec = doJSON(t, srv, http.MethodPost, "/wallet-screener/batch", map[string]any{
		"addresses": []string{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScreenerStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/wallet-screener/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stub")
}
