// Package model holds the editing rules of a FlexMod document: block id
// validation and renaming, group management, block creation and the
// per-kind payload checks. The record types themselves live in pkg/types.
package model
