package httpapi_test

import (
	"testing"

	"zoocore/testutil"
)

func TestAdapterAvoidsConcreteBackends(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InfraImportForbidden, "adapters go through the service and blob.Store")
}
