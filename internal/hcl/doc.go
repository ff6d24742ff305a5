// Package hcl provides the HCL implementation of config.Loader. It parses
// native syntax and JSON layout files, evaluates their expressions and
// translates the blocks into the format-agnostic config model.
package hcl
