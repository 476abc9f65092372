package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthToken_Immutable(t *testing.T) {
	clientPub := []byte{1, 2, 3}
	token := NewAuthToken("0.0.1", clientPub, []byte{4, 5, 6}, []byte{7, 8, 9})

	// Mutating the input does not leak into the token
	clientPub[0] = 0xff
	assert.Equal(t, []byte{1, 2, 3}, token.ClientPublicKey())

	// Mutating an accessor result does not leak into the token
	sig := token.ApplicationSignature()
	sig[0] = 0xff
	assert.Equal(t, []byte{7, 8, 9}, token.ApplicationSignature())
}

func TestAuthToken_JSON(t *testing.T) {
	token := NewAuthToken("0.0.1", []byte{0xaa}, []byte{0xbb}, []byte{0xcc})

	data, err := json.Marshal(token)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"0.0.1","app_pub_key":"bb","client_pub_key":"aa","signature":"cc"}`, string(data))

	var decoded AuthToken
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, token.Equal(&decoded))
}

func TestAuthTokenFromJSON_InvalidHex(t *testing.T) {
	_, err := AuthTokenFromJSON(AuthTokenJSON{Version: "0.0.1", AppPubKey: "zz", ClientPubKey: "aa", Signature: "cc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app_pub_key")
}

func TestNewRelayNodes(t *testing.T) {
	nodes, err := NewRelayNodes([]string{"http://0.0.0.0:8081", "https://relay.example.com/"})
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "http://0.0.0.0:8081/v1/client/relay", nodes[0].GetURI("/v1/client/relay"))
	assert.Equal(t, "https://relay.example.com/v1/client/relay", nodes[1].GetURI("v1/client/relay"))

	_, err = NewRelayNodes(nil)
	require.Error(t, err)

	_, err = NewRelayNodes([]string{"ftp://relay"})
	require.Error(t, err)

	_, err = NewRelayNodes([]string{"http://"})
	require.Error(t, err)
}

func TestHTTPMethod_Validate(t *testing.T) {
	assert.NoError(t, HTTPMethodGET.Validate())
	assert.NoError(t, HTTPMethodPOST.Validate())
	assert.Error(t, HTTPMethod("DELETE").Validate())
}
