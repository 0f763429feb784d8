package buildinfo

// Set via -ldflags at build time:
//
//	-X 'WeatherUSSD/internal/buildinfo.Version=v1.2.3'
//	-X 'WeatherUSSD/internal/buildinfo.Commit=abcdef0'
var (
	Version = "dev"
	Commit  = "local"
)
