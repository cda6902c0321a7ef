package utils

import (
	"encoding/json"
	"path/filepath"
	"testing"

	pkgError "github.com/AzielCF/az-juris/pkg/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRemoteJID(t *testing.T) {
	c, ok := ParseRemoteJID("5511999998888:12@s.whatsapp.net")
	require.True(t, ok)
	assert.Equal(t, "5511999998888@s.whatsapp.net", c.JID)
	assert.Equal(t, "5511999998888", c.User)
	assert.False(t, c.IsGroup)

	g, ok := ParseRemoteJID("120363025246125888@g.us")
	require.True(t, ok)
	assert.True(t, g.IsGroup)

	b, ok := ParseRemoteJID("status@broadcast")
	require.True(t, ok)
	assert.True(t, b.IsBroadcast)

	p, ok := ParseRemoteJID("+55 (11) 99999-8888")
	require.True(t, ok)
	assert.Equal(t, "5511999998888@s.whatsapp.net", p.JID)

	_, ok = ParseRemoteJID("")
	assert.False(t, ok)
}

func TestPhoneCandidates(t *testing.T) {
	assert.Equal(t, []string{"5511999998888", "11999998888"}, PhoneCandidates("5511999998888"))
	assert.Equal(t, []string{"11999998888", "5511999998888"}, PhoneCandidates("(11) 99999-8888"))
	assert.Nil(t, PhoneCandidates("abc"))
}

func TestNormalizeKeyword(t *testing.T) {
	assert.Equal(t, "ola", NormalizeKeyword("  Olá! "))
	assert.Equal(t, "bom dia", NormalizeKeyword("Bom   Dia"))
	assert.Equal(t, "menu principal", NormalizeKeyword("MENU PRINCIPAL."))
	assert.Equal(t, "1", NormalizeKeyword("1"))
}

func TestFlexInt(t *testing.T) {
	var payload struct {
		A FlexInt `json:"a"`
		B FlexInt `json:"b"`
		C FlexInt `json:"c"`
		D FlexInt `json:"d"`
	}
	err := json.Unmarshal([]byte(`{"a":1717171717,"b":"1717171718","c":{"low":1717171719,"high":0,"unsigned":true},"d":null}`), &payload)
	require.NoError(t, err)
	assert.EqualValues(t, 1717171717, payload.A)
	assert.EqualValues(t, 1717171718, payload.B)
	assert.EqualValues(t, 1717171719, payload.C)
	assert.EqualValues(t, 0, payload.D)
}

func TestPanicIfNeededKeepsGenericError(t *testing.T) {
	assert.NotPanics(t, func() { PanicIfNeeded(nil) })

	defer func() {
		r := recover()
		_, ok := r.(pkgError.GenericError)
		assert.True(t, ok)
	}()
	PanicIfNeeded(pkgError.ValidationError("bad input"))
}

func TestGetPersistentServerID(t *testing.T) {
	assert.Equal(t, "node-a", GetPersistentServerID("node-a", t.TempDir()))

	dir := t.TempDir()
	first := GetPersistentServerID("", filepath.Join(dir, "storages"))
	assert.NotEmpty(t, first)
	assert.Equal(t, first, GetPersistentServerID("", filepath.Join(dir, "storages")))
}
