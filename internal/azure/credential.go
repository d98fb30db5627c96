// Package azure holds the credential selection shared by the Azure Storage
// backends (blobs, tables, queues).
package azure

import (
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// Well-known Azurite development account.
const (
	AzuriteAccountName = "devstoreaccount1"
	AzuriteAccountKey  = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="
)

// IsLocal reports whether serviceURL points at a local emulator. Azure
// endpoints are always https.
func IsLocal(serviceURL string) bool {
	return strings.HasPrefix(serviceURL, "http://")
}

// DefaultCredential returns the ambient credential chain (managed identity,
// environment, az CLI).
func DefaultCredential() (azcore.TokenCredential, error) {
	return azidentity.NewDefaultAzureCredential(nil)
}
