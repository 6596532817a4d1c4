package api

// Historical API Client-
//
// Files:
//   config.go   - defaults, commitment levels and endpoint paths
//   base.go     - HistoricalClient struct, construction options and the shared GET helper
//   errors.go   - HTTPError, TransportError and DecodeError
//   history.go  - block, transaction and signature-history lookups
//   types.go    - optional typed views over the raw payloads, lamport conversion
//
// Usage:
//   client, err := api.NewHistoricalClient("http://localhost:8080", api.WithTimeout(10*time.Second))
//   block, err := client.GetBlock(ctx, 100, api.CommitmentFinalized)     // from history.go
//   sigs, err := client.GetSignaturesForAddress(ctx, addr, api.SignaturesOptions{Limit: 20})
//   info, err := api.DecodeSignatures(sigs)                                // from types.go
