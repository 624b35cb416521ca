// Package cli is the ascgate command tree.
//
// Commands:
//
//	token                              print a signed bearer token
//	get <endpoint> [key=value ...]     GET a resource or collection
//	post <endpoint> --body FILE        POST a JSON document
//	patch <endpoint> --body FILE       PATCH a JSON document
//	delete <endpoint>                  DELETE a resource
//	upload [flags] <file|s3://...>     reserve, transfer and commit an asset
//	sessions                           list unfinished journalled uploads
//	discard <asset-id>                 delete an uploaded asset
//
// Results are written to stdout as JSON, indented when stdout is a
// terminal. Failures are returned to the caller as one descriptive error.
package cli
