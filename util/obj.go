package util

func HasError(err error) bool {
	return err != nil
}

func HasString(s string) bool {
	return s != ""
}
