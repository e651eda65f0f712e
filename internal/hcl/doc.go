// Package hcl provides the HCL implementation of config.Loader and writes a
// store's variables back out as HCL.
//
// A driver configuration file looks like:
//
//	required = ["TRIPLE"]
//
//	vars {
//	  OPT_LEVEL   = 2
//	  SEARCH_DIRS = ["${env.NACL_SDK}/lib", "lib"]
//	  SHARED      = false
//	}
//
//	append {
//	  LIBS = ["-lm"]
//	}
//
// Expressions may read the process environment through env and call a small
// set of string and list functions. Strings, numbers and bools become
// one-token variables (true is "1", false is "0"); lists and tuples become
// one token per element; null becomes an empty variable.
//
// HCL interpolates "${...}" itself, so a driver template marker inside a
// string is written "$${NAME}".
package hcl
