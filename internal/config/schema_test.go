// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accountd/internal/config"
)

func TestGenerateSchema(t *testing.T) {
	data, err := config.GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))

	assert.Equal(t, config.SchemaID, schema["$id"])
	assert.Equal(t, false, schema["additionalProperties"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"http", "metrics", "log", "store", "token", "password", "ratelimit"} {
		assert.Contains(t, props, key)
	}
	assert.NotContains(t, props, "TokenSecret")
	assert.NotContains(t, props, "DatabaseURL")
}

func TestValidateSchema_Valid(t *testing.T) {
	yaml := `
http:
  addr: 127.0.0.1:8080
  request_timeout: 5s
metrics:
  addr: ""
log:
  format: text
  level: warn
store:
  driver: memory
  max_conns: 4
token:
  ttl: 1h
  issuer: accounts.example
password:
  algorithm: argon2id
  min_length: 12
  argon2_time: 2
  argon2_memory_kib: 19456
  argon2_threads: 1
  bcrypt_cost: 12
  max_concurrent: 4
ratelimit:
  rps: 10
  burst: 50
`
	assert.NoError(t, config.ValidateSchema([]byte(yaml)))
}

func TestValidateSchema_Empty(t *testing.T) {
	assert.NoError(t, config.ValidateSchema(nil))
	assert.NoError(t, config.ValidateSchema([]byte("  \n")))
}

func TestValidateSchema_RejectsUnknownKey(t *testing.T) {
	err := config.ValidateSchema([]byte("store:\n  dsn: postgres://x\n"))
	require.Error(t, err)
	assert.NotEmpty(t, config.FormatSchemaError(err))
	assert.NotContains(t, config.FormatSchemaError(err), "schema validation failed: ")
}

func TestFormatSchemaError_Nil(t *testing.T) {
	assert.Empty(t, config.FormatSchemaError(nil))
}
