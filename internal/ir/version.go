package ir

// GeneratorVersion is the bindgen release reported by --version.
const GeneratorVersion = "0.1.0"
