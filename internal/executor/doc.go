// Package executor runs validated GraphQL query documents against the
// registry's schema.
//
// Every root field is a paginated list: its arguments are parsed into a
// paginate.Request, its selection set is reduced to dotted selection paths,
// and one projection.Resolution builds the page. Completion then walks the
// selection set over the projected objects and shapes the response.
//
// # Value Completion
//
//   - Non-Null: a null result records an error at the field path and the
//     null propagates to the nearest nullable ancestor.
//   - List: items complete with index-aware paths. A null item of a
//     Non-Null item type nullifies the whole list.
//   - Leaf: scalars and enums are serialized to JSON-safe values. DateTime
//     values render as RFC 3339 strings.
//   - Object: fields are collected (fragments, type conditions, aliases,
//     @skip and @include) and completed in document order.
//
// A field the projection left out because its type was already being
// projected on the same branch completes as null, or as an empty list for
// list fields.
//
// # Errors
//
// Argument and pagination errors are reported with the BAD_USER_INPUT code
// and their message. Storage failures and missing required fields are
// logged and reported as INTERNAL_SERVER_ERROR with a generic message.
package executor
