package models

import (
	"encoding/xml"
	"fmt"
	"github.com/pkppln/depositor/constants"
)

// Statement is the state resource the staging server returns for one
// deposit. It carries two independent tokens as atom categories: the
// deposit's position in the staging pipeline, and its standing in the
// LOCKSS preservation layer.
type Statement struct {
	XMLName    xml.Name            `xml:"entry"`
	Categories []StatementCategory `xml:"category"`
}

type StatementCategory struct {
	Scheme string `xml:"scheme,attr"`
	Term   string `xml:"term,attr"`
}

// ParseStatement unmarshals a deposit statement response body.
func ParseStatement(data []byte) (*Statement, error) {
	stmt := &Statement{}
	err := xml.Unmarshal(data, stmt)
	if err != nil {
		return nil, fmt.Errorf("Cannot parse deposit statement: %v", err)
	}
	return stmt, nil
}

// ProcessingState returns the staging pipeline token, or empty if the
// statement doesn't carry one.
func (stmt *Statement) ProcessingState() string {
	return stmt.term(constants.ProcessingStateScheme)
}

// LockssState returns the preservation layer token, or empty if the
// statement doesn't carry one.
func (stmt *Statement) LockssState() string {
	return stmt.term(constants.LockssStateScheme)
}

func (stmt *Statement) term(scheme string) string {
	for _, category := range stmt.Categories {
		if category.Scheme == scheme {
			return category.Term
		}
	}
	return ""
}
