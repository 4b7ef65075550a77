package domain_test

import (
	"testing"

	"zoocore/testutil"
)

func TestDomainHasNoInternalImports(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "the domain package must stay independent of services and adapters")
}
