package credentials

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTerminalPrompterReadsWithoutEcho(testInstance *testing.T) {
	testCases := []struct {
		name             string
		readPassword     func(int) ([]byte, error)
		expectedPassword string
		expectedError    string
	}{
		{name: "password", readPassword: func(int) ([]byte, error) { return []byte("hunter2"), nil }, expectedPassword: "hunter2"},
		{name: "empty", readPassword: func(int) ([]byte, error) { return nil, nil }, expectedError: emptyPasswordMessageConstant},
		{name: "read_failure", readPassword: func(int) ([]byte, error) { return nil, errors.New("EOF") }, expectedError: "reading password: EOF"},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			var output bytes.Buffer
			prompter := &TerminalPrompter{
				input:        os.Stdin,
				output:       &output,
				isTerminal:   func(int) bool { return true },
				readPassword: testCase.readPassword,
			}

			password, promptError := prompter.PromptPassword("Password for ops@jump: ")
			require.Equal(testInstance, "Password for ops@jump: \n", output.String())
			if len(testCase.expectedError) > 0 {
				require.EqualError(testInstance, promptError, testCase.expectedError)
				return
			}
			require.NoError(testInstance, promptError)
			require.Equal(testInstance, testCase.expectedPassword, password)
		})
	}
}
