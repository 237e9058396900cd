package domain

import (
	"testing"

	"rentledger/testutil"
)

// TestDomainDoesNotImportInternal keeps the domain layer free of any
// dependency on internal implementation packages.
func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDependency(t, ".", testutil.Under(testutil.ModulePath+"/internal"), "domain must not depend on internal packages")
}
