package schema

import _ "embed"

//go:embed zkmod-kernel-variants.schema.json
var KernelVariantsSchema []byte
