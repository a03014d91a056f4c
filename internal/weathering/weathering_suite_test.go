package weathering

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestWeathering(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Weathering Suite")
}
