// Package provisioning turns one observed IaCAWS snapshot into AWS
// infrastructure and a reconciliation outcome.
//
// [Reconciler.Reconcile] runs the three provisioning steps in order: network,
// compute instance, database instance. The steps are independent and not
// transactional: the first failure stops the sequence, and whatever was
// created before it stays in place. Errors and panics from the provisioner
// never escape Reconcile; they become a Failed [Outcome].
//
// Outcomes are handed to [OutcomeRecorder]s: [StatusWriter] writes them back
// to the resource status and [ArchiveRecorder] stores a YAML record in an
// object store.
package provisioning
