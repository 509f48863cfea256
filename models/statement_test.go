package models_test

import (
	"github.com/pkppln/depositor/constants"
	"github.com/pkppln/depositor/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

var statementXml = `<?xml version="1.0" encoding="UTF-8"?>
<entry>
  <category scheme="http://pkp.sfu.ca/SWORD/terms/processingState" term="harvested"/>
  <category scheme="http://pkp.sfu.ca/SWORD/terms/lockssState" term="inProgress"/>
</entry>`

func TestParseStatement(t *testing.T) {
	statement, err := models.ParseStatement([]byte(statementXml))
	require.NoError(t, err)
	require.Equal(t, 2, len(statement.Categories))
	assert.Equal(t, constants.StateHarvested, statement.ProcessingState())
	assert.Equal(t, constants.LockssInProgress, statement.LockssState())
}

func TestParseStatementBadXml(t *testing.T) {
	_, err := models.ParseStatement([]byte("<entry"))
	assert.Error(t, err)
}

func TestStatementMissingCategories(t *testing.T) {
	statement, err := models.ParseStatement([]byte(`<entry></entry>`))
	require.NoError(t, err)
	assert.Equal(t, "", statement.ProcessingState())
	assert.Equal(t, "", statement.LockssState())
}

func TestStatementIgnoresUnknownSchemes(t *testing.T) {
	xmlData := `<entry>
  <category scheme="http://example.com/other" term="whatever"/>
  <category scheme="http://pkp.sfu.ca/SWORD/terms/processingState" term="deposited"/>
</entry>`
	statement, err := models.ParseStatement([]byte(xmlData))
	require.NoError(t, err)
	assert.Equal(t, constants.StateDeposited, statement.ProcessingState())
	assert.Equal(t, "", statement.LockssState())
}
