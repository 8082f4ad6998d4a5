package contracts

type InputFlags struct {
	Kind       Kind
	InputPath  string
	OutputPath string
}
