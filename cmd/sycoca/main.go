// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Command sycoca builds and inspects system configuration cache
// databases.
package main

import "github.com/bpowers/sycoca/cmd/sycoca/cmd"

func main() {
	cmd.Execute()
}
